package bolt_test

import (
	"path/filepath"
	"testing"

	boltInfra "github.com/fastygo/todo/internal/infrastructure/bolt"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/bolt"
	"github.com/fastygo/todo/repository/repotest"
)

func TestTodoRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.TodoRepository {
		db, err := boltInfra.Open(filepath.Join(t.TempDir(), "todos.db"), bolt.DefaultBucket)
		if err != nil {
			t.Fatalf("open bolt: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return bolt.NewTodoRepository(db, bolt.DefaultBucket)
	})
}
