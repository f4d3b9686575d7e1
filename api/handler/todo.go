package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
)

// TodoService is the use-case surface the handler drives.
type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, title string) (*domain.Todo, error)
	Update(ctx context.Context, id int64, patch domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id int64) error
}

type TodoHandler struct {
	baseHandler
	uc TodoService
}

func NewTodoHandler(uc TodoService, adapter *httpcontext.Adapter, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List todos, newest first
// @Tags todos
// @Router /todos [get]
func (h *TodoHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	todos, err := h.uc.List(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	h.respondJSON(ctx, http.StatusOK, todos)
}

// @Summary Create todo
// @Tags todos
// @Router /todos [post]
func (h *TodoHandler) Create(ctx *fasthttp.RequestCtx) {
	req, err := transport.DecodeCreate(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, req.Title)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusCreated, created)
}

// @Summary Update todo title and/or completion
// @Tags todos
// @Router /todos [put]
func (h *TodoHandler) Update(ctx *fasthttp.RequestCtx) {
	req, err := transport.DecodeUpdate(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.Update(stdCtx, int64(req.ID), domain.TodoPatch{
		Title:     req.Title,
		Completed: req.Completed,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, updated)
}

// @Summary Delete todo
// @Tags todos
// @Router /todos [delete]
func (h *TodoHandler) Delete(ctx *fasthttp.RequestCtx) {
	req, err := transport.DecodeDelete(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, int64(req.ID)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondNoContent(ctx)
}
