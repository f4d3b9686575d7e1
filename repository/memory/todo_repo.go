// Package memory keeps todos in process memory. It backs tests and the
// "memory" store driver.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// TodoRepository is a mutex-guarded in-memory TodoRepository.
type TodoRepository struct {
	mu     sync.RWMutex
	todos  map[int64]domain.Todo
	nextID int64
	now    func() time.Time
}

var _ repository.TodoRepository = (*TodoRepository)(nil)

// NewTodoRepository returns an empty store.
func NewTodoRepository() *TodoRepository {
	return &TodoRepository{
		todos: make(map[int64]domain.Todo),
		now:   time.Now,
	}
}

// WithClock replaces the creation-time source. Intended for tests.
func (r *TodoRepository) WithClock(now func() time.Time) *TodoRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
	return r
}

func (r *TodoRepository) List(ctx context.Context) ([]domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]domain.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		todos = append(todos, todo)
	}
	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.After(todos[j].CreatedAt)
		}
		return todos[i].ID > todos[j].ID
	})
	return todos, nil
}

func (r *TodoRepository) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}
	return &todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, title string) (*domain.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	todo := domain.Todo{ID: r.nextID, Title: title, CreatedAt: r.now()}
	r.todos[todo.ID] = todo
	return &todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.todos[id]
	if !ok {
		return nil, domain.ErrTodoNotFound
	}
	updated := patch.Apply(current)
	r.todos[id] = updated
	return &updated, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return domain.ErrTodoNotFound
	}
	delete(r.todos, id)
	return nil
}

func (r *TodoRepository) Ping(ctx context.Context) error {
	return nil
}
