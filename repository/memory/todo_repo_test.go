package memory_test

import (
	"testing"

	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/memory"
	"github.com/fastygo/todo/repository/repotest"
)

func TestTodoRepositoryContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.TodoRepository {
		return memory.NewTodoRepository()
	})
}
