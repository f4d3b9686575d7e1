package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todo/api/handler"
	"github.com/fastygo/todo/internal/middleware"
)

type Handlers struct {
	Todo   *apiHandler.TodoHandler
	Health *apiHandler.HealthHandler
}

// todoPrefixes are the mount points of the todo collection. The bare path is
// what clients use; the /api alias matches deployments behind a path proxy.
var todoPrefixes = []string{"/todos", "/api/todos"}

// New wires routes. Middlewares wrap the todo routes only; /health stays open.
func New(handlers Handlers, mws ...middleware.Middleware) *router.Router {
	r := router.New()

	if handlers.Health != nil {
		r.GET("/health", handlers.Health.Check)
	}

	wrap := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return middleware.Chain(h, mws...)
	}
	for _, prefix := range todoPrefixes {
		r.GET(prefix, wrap(handlers.Todo.List))
		r.POST(prefix, wrap(handlers.Todo.Create))
		r.PUT(prefix, wrap(handlers.Todo.Update))
		r.DELETE(prefix, wrap(handlers.Todo.Delete))
	}

	return r
}
