// Package todoclient talks to the todo HTTP API.
package todoclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("todo api: status %d", e.Status)
	}
	return fmt.Sprintf("todo api: %s (status %d)", e.Message, e.Status)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == fasthttp.StatusNotFound
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

type Option func(*Client)

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds requests whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

// New returns a client for the API mounted at baseURL, for example
// "http://localhost:8080" or "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
		http: &fasthttp.Client{
			Name:                "todoctl",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]domain.Todo, error) {
	todos := []domain.Todo{}
	if err := c.do(ctx, fasthttp.MethodGet, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) Create(ctx context.Context, title string) (domain.Todo, error) {
	var todo domain.Todo
	err := c.do(ctx, fasthttp.MethodPost, transport.CreateTodoRequest{Title: title}, &todo)
	return todo, err
}

func (c *Client) Update(ctx context.Context, id int64, patch domain.TodoPatch) (domain.Todo, error) {
	var todo domain.Todo
	err := c.do(ctx, fasthttp.MethodPut, transport.UpdateTodoRequest{
		ID:        transport.TodoID(id),
		Title:     patch.Title,
		Completed: patch.Completed,
	}, &todo)
	return todo, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, fasthttp.MethodDelete, transport.DeleteTodoRequest{ID: transport.TodoID(id)}, nil)
}

func (c *Client) do(ctx context.Context, method string, in, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/todos")
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, bounded := ctx.Deadline()
	if !bounded {
		deadline = time.Now().Add(c.timeout)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if bounded && errors.Is(err, fasthttp.ErrTimeout) {
			return context.DeadlineExceeded
		}
		return fmt.Errorf("%s %s: %w", method, c.baseURL+"/todos", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &APIError{
			Status:  status,
			Message: gjson.GetBytes(resp.Body(), "error").String(),
		}
	}
	if out == nil || status == fasthttp.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
