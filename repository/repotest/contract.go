// Package repotest holds the behavioural contract every TodoRepository
// driver must satisfy.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) repository.TodoRepository

// Run executes the contract against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("CreateThenList", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, "buy milk")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID <= 0 {
			t.Errorf("expected store-assigned positive id, got %d", created.ID)
		}
		if created.Completed {
			t.Error("new todo must not be completed")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected createdAt to be set")
		}

		todos, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		matches := 0
		for _, todo := range todos {
			if todo.Title == "buy milk" {
				matches++
				if todo.ID != created.ID || todo.Completed {
					t.Errorf("unexpected listed todo %+v", todo)
				}
			}
		}
		if matches != 1 {
			t.Errorf("expected exactly one match, got %d", matches)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var ids []int64
		for _, title := range []string{"first", "second", "third"} {
			todo, err := repo.Create(ctx, title)
			if err != nil {
				t.Fatalf("create %s: %v", title, err)
			}
			ids = append(ids, todo.ID)
			time.Sleep(2 * time.Millisecond)
		}

		todos, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(todos) != 3 {
			t.Fatalf("expected 3 todos, got %d", len(todos))
		}
		for i, want := range []int64{ids[2], ids[1], ids[0]} {
			if todos[i].ID != want {
				t.Errorf("position %d: got id %d, want %d", i, todos[i].ID, want)
			}
		}
	})

	t.Run("EmptyListIsNotNil", func(t *testing.T) {
		todos, err := newRepo(t).List(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if todos == nil {
			t.Error("expected empty, non-nil slice")
		}
	})

	t.Run("UpdateAppliesOnlyPresentFields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, "draft")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		done := true
		updated, err := repo.Update(ctx, created.ID, domain.TodoPatch{Completed: &done})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Title != "draft" || !updated.Completed || updated.ID != created.ID {
			t.Errorf("unexpected todo after toggle: %+v", updated)
		}

		title := "final"
		updated, err = repo.Update(ctx, created.ID, domain.TodoPatch{Title: &title})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Title != "final" || !updated.Completed {
			t.Errorf("unexpected todo after rename: %+v", updated)
		}

		fetched, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if fetched.Title != "final" || !fetched.Completed {
			t.Errorf("update not persisted: %+v", fetched)
		}
	})

	t.Run("ToggleIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, "idem")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		done := true
		once, err := repo.Update(ctx, created.ID, domain.TodoPatch{Completed: &done})
		if err != nil {
			t.Fatalf("first toggle: %v", err)
		}
		twice, err := repo.Update(ctx, created.ID, domain.TodoPatch{Completed: &done})
		if err != nil {
			t.Fatalf("second toggle: %v", err)
		}
		if once.ID != twice.ID || once.Title != twice.Title || once.Completed != twice.Completed {
			t.Errorf("toggle not idempotent: %+v vs %+v", once, twice)
		}
	})

	t.Run("MissingIDIsNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		kept, err := repo.Create(ctx, "kept")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		missing := kept.ID + 1000

		if _, err := repo.GetByID(ctx, missing); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("get: expected not found, got %v", err)
		}
		title := "ghost"
		if _, err := repo.Update(ctx, missing, domain.TodoPatch{Title: &title}); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("update: expected not found, got %v", err)
		}
		if err := repo.Delete(ctx, missing); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("delete: expected not found, got %v", err)
		}

		todos, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(todos) != 1 || todos[0].Title != "kept" {
			t.Errorf("store mutated by not-found calls: %+v", todos)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, "gone")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetByID(ctx, created.ID); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("expected not found after delete, got %v", err)
		}
		if err := repo.Delete(ctx, created.ID); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("second delete: expected not found, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := newRepo(t).Ping(context.Background()); err != nil {
			t.Errorf("ping: %v", err)
		}
	})
}
