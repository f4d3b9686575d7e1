package controller

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/todo/domain"
)

// call is one request observed by gatedAPI; the test answers it on reply.
type call struct {
	op    string
	id    int64
	title string
	patch domain.TodoPatch
	reply chan result
}

type result struct {
	todo  domain.Todo
	todos []domain.Todo
	err   error
}

// gatedAPI blocks every request until the test replies, so tests control the
// order in which operations resolve.
type gatedAPI struct {
	calls chan call
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{calls: make(chan call, 16)}
}

func (g *gatedAPI) roundTrip(ctx context.Context, c call) result {
	c.reply = make(chan result, 1)
	g.calls <- c
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

func (g *gatedAPI) List(ctx context.Context) ([]domain.Todo, error) {
	r := g.roundTrip(ctx, call{op: "list"})
	return r.todos, r.err
}

func (g *gatedAPI) Create(ctx context.Context, title string) (domain.Todo, error) {
	r := g.roundTrip(ctx, call{op: "create", title: title})
	return r.todo, r.err
}

func (g *gatedAPI) Update(ctx context.Context, id int64, patch domain.TodoPatch) (domain.Todo, error) {
	r := g.roundTrip(ctx, call{op: "update", id: id, patch: patch})
	return r.todo, r.err
}

func (g *gatedAPI) Delete(ctx context.Context, id int64) error {
	return g.roundTrip(ctx, call{op: "delete", id: id}).err
}

func (g *gatedAPI) expect(t *testing.T, op string) call {
	t.Helper()
	select {
	case c := <-g.calls:
		if c.op != op {
			t.Fatalf("expected %s call, got %s", op, c.op)
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s call", op)
	}
	return call{}
}

func (g *gatedAPI) expectNone(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected %s call", c.op)
	case <-time.After(20 * time.Millisecond):
	}
}

var (
	todoA = domain.Todo{ID: 1, Title: "a"}
	todoB = domain.Todo{ID: 2, Title: "b"}
)

// started returns a controller whose initial list has been served.
func started(t *testing.T, initial ...domain.Todo) (*Controller, *gatedAPI) {
	t.Helper()
	api := newGatedAPI()
	c := New(api, Config{}, nil)
	t.Cleanup(c.Close)

	c.Start()
	api.expect(t, "list").reply <- result{todos: initial}
	c.Wait()
	return c, api
}

func ids(todos []domain.Todo) []int64 {
	out := make([]int64, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func (c *Controller) authoritativeIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ids(c.authoritative)
}

func assertIDs(t *testing.T, what string, got []int64, want ...int64) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: got %v, want %v", what, got, want)
	}
}

func TestFoldIsPure(t *testing.T) {
	authoritative := []domain.Todo{todoA}
	pending := []PendingAction{
		{Kind: ActionAdd, Todo: domain.Todo{ID: -1, Title: "x"}},
		{Kind: ActionReset, Snapshot: []domain.Todo{todoB}},
		{Kind: ActionAdd, Todo: domain.Todo{ID: -2, Title: "y"}},
	}

	first := Fold(authoritative, pending)
	second := Fold(authoritative, pending)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("fold not deterministic: %v vs %v", first, second)
	}
	assertIDs(t, "fold", ids(first), -2, 2)

	first[0].Title = "mutated"
	if pending[2].Todo.Title != "y" || authoritative[0].Title != "a" {
		t.Fatal("fold result aliases its inputs")
	}
	if got := Fold(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("empty fold: %#v", got)
	}
}

func TestAddTaskSuccess(t *testing.T) {
	c, api := started(t, todoA)

	c.AddTask("b")
	view := c.Snapshot()
	if len(view.Todos) != 2 || view.Todos[0].Title != "b" || view.Todos[0].Completed {
		t.Fatalf("speculative view: %+v", view.Todos)
	}
	if !view.Todos[0].IsTemporary() || view.Todos[1] != todoA {
		t.Fatalf("speculative view: %+v", view.Todos)
	}
	if !view.Busy {
		t.Error("expected busy while create is in flight")
	}

	create := api.expect(t, "create")
	if create.title != "b" {
		t.Fatalf("create title: %q", create.title)
	}
	create.reply <- result{todo: todoB}
	c.Wait()

	assertIDs(t, "authoritative", c.authoritativeIDs(), 2, 1)
	view = c.Snapshot()
	assertIDs(t, "view", ids(view.Todos), 2, 1)
	if view.Busy || view.LastError != "" {
		t.Errorf("settled view: %+v", view)
	}
}

func TestAddTaskFailureRollsBack(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	api := newGatedAPI()
	c := New(api, Config{}, zap.New(core))
	t.Cleanup(c.Close)
	c.Start()
	api.expect(t, "list").reply <- result{todos: []domain.Todo{todoA}}
	c.Wait()

	c.AddTask("c")
	assertIDs(t, "speculative", ids(c.Snapshot().Todos), -1, 1)

	api.expect(t, "create").reply <- result{err: errors.New("network down")}
	c.Wait()

	view := c.Snapshot()
	assertIDs(t, "rolled back", ids(view.Todos), 1)
	for _, todo := range view.Todos {
		if todo.Title == "c" {
			t.Fatal("failed add is still visible")
		}
	}
	if view.LastError == "" {
		t.Error("expected last error")
	}
	if logs.FilterField(zap.String("op", "add")).Len() != 1 {
		t.Errorf("expected failure log, got %v", logs.All())
	}
}

func TestRollbackDoesNotResurrectConcurrentDelete(t *testing.T) {
	c, api := started(t, todoB, todoA)

	c.AddTask("c")
	create := api.expect(t, "create")

	c.DeleteTask(1)
	api.expect(t, "delete").reply <- result{}

	done := true
	c.ToggleTask(2, done)
	toggle := api.expect(t, "update")

	// Fail the add while the toggle is still in flight so the reset
	// action is part of the overlay.
	create.reply <- result{err: errors.New("boom")}
	waitFor(t, c, func(v View) bool { return len(v.Todos) == 1 })
	assertIDs(t, "after rollback", ids(c.Snapshot().Todos), 2)

	toggle.reply <- result{todo: domain.Todo{ID: 2, Title: "b", Completed: true}}
	c.Wait()

	view := c.Snapshot()
	assertIDs(t, "final", ids(view.Todos), 2)
	if !view.Todos[0].Completed {
		t.Error("rollback discarded a concurrent confirmed update")
	}
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending log not cleared when idle: %d", pending)
	}
}

func TestFailedAddKeepsOtherPendingAddsVisible(t *testing.T) {
	c, api := started(t, todoA)

	c.AddTask("x")
	first := api.expect(t, "create")
	c.AddTask("y")
	second := api.expect(t, "create")

	second.reply <- result{err: errors.New("rejected")}
	waitFor(t, c, func(v View) bool { return len(v.Todos) == 2 })
	view := c.Snapshot()
	if view.Todos[0].Title != "x" || view.Todos[1] != todoA {
		t.Fatalf("view after second add failed: %+v", view.Todos)
	}

	first.reply <- result{todo: domain.Todo{ID: 3, Title: "x"}}
	c.Wait()
	assertIDs(t, "final", ids(c.Snapshot().Todos), 3, 1)
}

func TestToggleAndDelete(t *testing.T) {
	c, api := started(t, todoA)

	c.ToggleTask(1, true)
	update := api.expect(t, "update")
	if update.id != 1 || update.patch.Completed == nil || !*update.patch.Completed || update.patch.Title != nil {
		t.Fatalf("toggle request: %+v", update)
	}
	if c.Snapshot().Todos[0].Completed {
		t.Fatal("toggle applied before confirmation")
	}
	update.reply <- result{todo: domain.Todo{ID: 1, Title: "a", Completed: true}}
	c.Wait()
	if !c.Snapshot().Todos[0].Completed {
		t.Fatal("toggle not applied")
	}

	c.DeleteTask(1)
	api.expect(t, "delete").reply <- result{}
	c.Wait()
	assertIDs(t, "after delete", c.authoritativeIDs())
}

func TestUpdateTask(t *testing.T) {
	c, api := started(t, todoB, todoA)

	c.UpdateTask(1, "renamed")
	update := api.expect(t, "update")
	if update.patch.Title == nil || *update.patch.Title != "renamed" || update.patch.Completed != nil {
		t.Fatalf("update request: %+v", update.patch)
	}
	update.reply <- result{todo: domain.Todo{ID: 1, Title: "renamed"}}
	c.Wait()

	view := c.Snapshot()
	assertIDs(t, "order kept", ids(view.Todos), 2, 1)
	if view.Todos[1].Title != "renamed" {
		t.Errorf("got %+v", view.Todos[1])
	}
}

func TestFailedMutationsLeaveStateUnchanged(t *testing.T) {
	c, api := started(t, todoA)
	before := c.Snapshot().Todos

	c.UpdateTask(1, "z")
	api.expect(t, "update").reply <- result{err: errors.New("500")}
	c.DeleteTask(1)
	api.expect(t, "delete").reply <- result{err: errors.New("404")}
	c.Wait()

	if got := c.Snapshot().Todos; !reflect.DeepEqual(got, before) {
		t.Fatalf("state changed: %+v", got)
	}
}

func TestTemporaryIDsAreRejectedLocally(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	api := newGatedAPI()
	c := New(api, Config{}, zap.New(core))
	t.Cleanup(c.Close)

	c.AddTask("pending")
	create := api.expect(t, "create")
	tempID := c.Snapshot().Todos[0].ID

	c.ToggleTask(tempID, true)
	c.UpdateTask(tempID, "x")
	c.DeleteTask(tempID)
	api.expectNone(t)
	if got := logs.FilterMessage("todo is not saved yet").Len(); got != 3 {
		t.Errorf("expected 3 warnings, got %d", got)
	}

	create.reply <- result{todo: domain.Todo{ID: 9, Title: "pending"}}
	c.Wait()
}

func TestTemporaryIDsNeverRepeat(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{}, nil)
	t.Cleanup(c.Close)

	c.AddTask("one")
	c.AddTask("two")
	view := c.Snapshot()
	if view.Todos[0].ID == view.Todos[1].ID || view.Todos[0].ID >= 0 || view.Todos[1].ID >= 0 {
		t.Fatalf("temporary ids: %v", ids(view.Todos))
	}
	api.expect(t, "create").reply <- result{err: errors.New("x")}
	api.expect(t, "create").reply <- result{err: errors.New("x")}
	c.Wait()
}

func TestInitializeRunsOnce(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{}, nil)
	t.Cleanup(c.Close)

	c.Start()
	c.Start()
	view := c.Snapshot()
	if !view.Loading || !view.Busy {
		t.Errorf("expected loading while listing: %+v", view)
	}

	api.expect(t, "list").reply <- result{todos: []domain.Todo{todoA}}
	c.Wait()
	c.Start()
	api.expectNone(t)

	view = c.Snapshot()
	if view.Loading || view.Busy {
		t.Errorf("flags not cleared: %+v", view)
	}
	assertIDs(t, "initial", ids(view.Todos), 1)
}

func TestInitializeFailure(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{}, nil)
	t.Cleanup(c.Close)

	c.Start()
	api.expect(t, "list").reply <- result{err: errors.New("offline")}
	c.Wait()

	view := c.Snapshot()
	if view.Loading || len(view.Todos) != 0 || view.LastError == "" {
		t.Errorf("got %+v", view)
	}
}

func TestRequestTimeout(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{RequestTimeout: 20 * time.Millisecond}, nil)
	t.Cleanup(c.Close)

	c.DeleteTask(1)
	api.expect(t, "delete")
	c.Wait()

	if view := c.Snapshot(); view.Busy || view.LastError == "" {
		t.Errorf("expected timed out delete to settle as a failure: %+v", view)
	}
}

func TestCloseCancelsInFlight(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{}, nil)

	c.AddTask("never")
	api.expect(t, "create")

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return")
	}

	if len(c.Snapshot().Todos) != 0 {
		t.Error("cancelled add still visible")
	}
	c.AddTask("after close")
	api.expectNone(t)

	for range c.Changes() {
	}
}

func TestChangesAreSignalled(t *testing.T) {
	api := newGatedAPI()
	c := New(api, Config{}, nil)
	t.Cleanup(c.Close)

	c.Start()
	select {
	case <-c.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal for start")
	}
	api.expect(t, "list").reply <- result{}
	c.Wait()
}

// waitFor polls until cond holds for the current view.
func waitFor(t *testing.T, c *Controller, cond func(View) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(c.Snapshot()) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met, view: %+v", c.Snapshot())
}
