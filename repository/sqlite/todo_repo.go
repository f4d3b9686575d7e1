package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const todoColumns = `id, title, completed, created_at`

type todoRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTodoRepository returns a SQLite-backed implementation of TodoRepository.
func NewTodoRepository(db *sql.DB) repository.TodoRepository {
	return &todoRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *todoRepository) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos WHERE id = ?`
	return scanTodo(r.db.QueryRowContext(ctx, query, id))
}

func (r *todoRepository) List(ctx context.Context) ([]domain.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (r *todoRepository) Create(ctx context.Context, title string) (*domain.Todo, error) {
	const query = `INSERT INTO todos (title, completed, created_at) VALUES (?, 0, ?)`
	createdAt := r.now()
	res, err := r.db.ExecContext(ctx, query, title, createdAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Todo{ID: id, Title: title, CreatedAt: createdAt}, nil
}

func (r *todoRepository) Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	const query = `
	UPDATE todos
	SET title = COALESCE(?, title),
		completed = COALESCE(?, completed)
	WHERE id = ?
	`
	var title, completed interface{}
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Completed != nil {
		completed = *patch.Completed
	}

	res, err := r.db.ExecContext(ctx, query, title, completed, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrTodoNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *todoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}

func (r *todoRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanTodo(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Todo, error) {
	var todo domain.Todo
	if err := row.Scan(&todo.ID, &todo.Title, &todo.Completed, &todo.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}
