package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	sqliteInfra "github.com/fastygo/todo/internal/infrastructure/sqlite"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/repotest"
	"github.com/fastygo/todo/repository/sqlite"
)

func TestTodoRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.TodoRepository {
		db, err := sqliteInfra.Open(context.Background(), filepath.Join(t.TempDir(), "todos.sqlite3"), "", nil)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return sqlite.NewTodoRepository(db)
	})
}
