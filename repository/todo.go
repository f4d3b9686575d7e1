package repository

import (
	"context"

	"github.com/fastygo/todo/domain"
)

// TodoRepository is the durable todo store. Implementations return
// domain.ErrTodoNotFound for absent ids and never mutate on that path.
type TodoRepository interface {
	// List returns every todo ordered by creation time, newest first.
	List(ctx context.Context) ([]domain.Todo, error)
	GetByID(ctx context.Context, id int64) (*domain.Todo, error)
	// Create stores a new, not completed todo and assigns its id.
	Create(ctx context.Context, title string) (*domain.Todo, error)
	Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// TodoListCache keeps the rendered List result between mutations.
//
// Every Invalidate advances a generation counter. Get reports the generation
// current at read time and Set stores the list only while that generation is
// still current, so a list read before a mutation committed is never written
// back after the mutation invalidated the cache.
type TodoListCache interface {
	Get(ctx context.Context) (todos []domain.Todo, generation int64, ok bool, err error)
	Set(ctx context.Context, generation int64, todos []domain.Todo) (stored bool, err error)
	Invalidate(ctx context.Context) error
}
