package todo

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	appLogger "github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/repository"
)

// Messages returned to API clients for store failures.
const (
	msgListFailed   = "Failed to fetch Todo List. Please try again later"
	msgCreateFailed = "Failed to create Todo. Please try again later"
	msgUpdateFailed = "Failed to update Todo. Please try again later"
	msgDeleteFailed = "Failed to delete Todo. Please try again later."
)

type UseCase struct {
	todos  repository.TodoRepository
	cache  repository.TodoListCache
	logger *zap.Logger
}

// New builds the todo use case. cache may be nil.
func New(todos repository.TodoRepository, cache repository.TodoListCache, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		todos:  todos,
		cache:  cache,
		logger: logger,
	}
}

// List serves the cached list when present. On a miss it reads the store and
// writes the result back unless a mutation invalidated the cache meanwhile.
func (uc *UseCase) List(ctx context.Context) ([]domain.Todo, error) {
	log := appLogger.WithRequestID(ctx, uc.logger)

	var (
		generation int64
		writeBack  bool
	)
	if uc.cache != nil {
		cached, gen, ok, err := uc.cache.Get(ctx)
		switch {
		case err != nil:
			log.Warn("todo list cache read failed", zap.Error(err))
		case ok:
			return cached, nil
		default:
			generation, writeBack = gen, true
		}
	}

	todos, err := uc.todos.List(ctx)
	if err != nil {
		log.Error("Error fetching Todos", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, msgListFailed, err)
	}

	if writeBack {
		stored, err := uc.cache.Set(ctx, generation, todos)
		switch {
		case err != nil:
			log.Warn("todo list cache write failed", zap.Error(err))
		case !stored:
			log.Debug("todo list changed during read, cache left empty", zap.Int64("generation", generation))
		}
	}
	return todos, nil
}

func (uc *UseCase) Create(ctx context.Context, title string) (*domain.Todo, error) {
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	created, err := uc.todos.Create(ctx, title)
	if err != nil {
		appLogger.WithRequestID(ctx, uc.logger).Error("Error creating Todo", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, msgCreateFailed, err)
	}
	uc.invalidate(ctx)
	return created, nil
}

// Update applies patch to an existing todo. Absent ids yield not-found
// without touching the store.
func (uc *UseCase) Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error) {
	if patch.Title != nil {
		title, err := domain.NormalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}

	if err := uc.ensureExists(ctx, id, msgUpdateFailed); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return uc.todos.GetByID(ctx, id)
	}

	updated, err := uc.todos.Update(ctx, id, patch)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrTodoNotFound
		}
		appLogger.WithRequestID(ctx, uc.logger).Error("Error updating Todo", zap.Int64("id", id), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, msgUpdateFailed, err)
	}
	uc.invalidate(ctx)
	return updated, nil
}

func (uc *UseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.ensureExists(ctx, id, msgDeleteFailed); err != nil {
		return err
	}

	if err := uc.todos.Delete(ctx, id); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.ErrTodoNotFound
		}
		appLogger.WithRequestID(ctx, uc.logger).Error("Error deleting Todo", zap.Int64("id", id), zap.Error(err))
		return domain.WrapError(domain.ErrCodeInternal, msgDeleteFailed, err)
	}
	uc.invalidate(ctx)
	return nil
}

// Ping reports store reachability for health checks.
func (uc *UseCase) Ping(ctx context.Context) error {
	return uc.todos.Ping(ctx)
}

func (uc *UseCase) ensureExists(ctx context.Context, id int64, failure string) error {
	if _, err := uc.todos.GetByID(ctx, id); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.ErrTodoNotFound
		}
		appLogger.WithRequestID(ctx, uc.logger).Error("todo lookup failed", zap.Int64("id", id), zap.Error(err))
		return domain.WrapError(domain.ErrCodeInternal, failure, err)
	}
	return nil
}

func (uc *UseCase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		appLogger.WithRequestID(ctx, uc.logger).Warn("todo list cache invalidation failed", zap.Error(err))
	}
}
