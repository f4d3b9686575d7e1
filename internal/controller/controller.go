// Package controller keeps a client-side todo list in sync with the API and
// shows mutations optimistically while they are in flight.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
)

// API is the remote todo collection; *todoclient.Client satisfies it.
type API interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, title string) (domain.Todo, error)
	Update(ctx context.Context, id int64, patch domain.TodoPatch) (domain.Todo, error)
	Delete(ctx context.Context, id int64) error
}

type Config struct {
	// RequestTimeout bounds every API call. Zero means 10s.
	RequestTimeout time.Duration
}

// View is an immutable observation of the controller.
type View struct {
	Todos   []domain.Todo
	Loading bool
	Busy    bool
	// LastError describes the most recent failed operation. It is cleared
	// when the next operation is issued.
	LastError string
}

type Controller struct {
	api    API
	cfg    Config
	logger *zap.Logger

	base    context.Context
	cancel  context.CancelFunc
	start   sync.Once
	stop    sync.Once
	wg      sync.WaitGroup
	changes chan struct{}

	mu            sync.Mutex
	authoritative []domain.Todo
	pending       []PendingAction
	loading       bool
	inflight      int
	lastErr       string
	nextTemp      int64
	nextSeq       uint64
	closed        bool
}

func New(api API, cfg Config, logger *zap.Logger) *Controller {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:           api,
		cfg:           cfg,
		logger:        logger,
		base:          base,
		cancel:        cancel,
		changes:       make(chan struct{}, 1),
		authoritative: []domain.Todo{},
	}
}

// Start fetches the initial list. Only the first call has any effect.
func (c *Controller) Start() {
	c.start.Do(func() {
		if !c.begin(func() { c.loading = true }) {
			return
		}
		go c.initialize()
	})
}

func (c *Controller) initialize() {
	ctx, cancel := c.requestContext()
	defer cancel()

	todos, err := c.api.List(ctx)
	c.settle(func() {
		c.loading = false
		if err != nil {
			c.fail("list", err)
			return
		}
		c.commit(replaceAll(todos))
	})
}

// AddTask shows a temporary row at once and creates the todo remotely. On
// failure the view rolls back to the list as it was when the call started,
// rebased onto every mutation confirmed since.
func (c *Controller) AddTask(title string) {
	var seq uint64
	var tempID int64
	ok := c.begin(func() {
		c.nextTemp--
		c.nextSeq++
		tempID, seq = c.nextTemp, c.nextSeq
		c.pending = append(clonePending(c.pending), PendingAction{
			Kind: ActionAdd,
			Todo: domain.Todo{
				ID:        tempID,
				Title:     strings.TrimSpace(title),
				CreatedAt: time.Now(),
			},
			Snapshot: c.authoritative,
			seq:      seq,
		})
	})
	if !ok {
		return
	}

	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()

		created, err := c.api.Create(ctx, title)
		c.settle(func() {
			action, found := c.takeAction(seq)
			if err != nil {
				c.fail("add", err, zap.Int64("temp_id", tempID))
				if found {
					c.nextSeq++
					// The reset goes beneath the remaining overlay so other
					// pending adds stay visible.
					c.pending = append([]PendingAction{{
						Kind:     ActionReset,
						Snapshot: action.Snapshot,
						seq:      c.nextSeq,
					}}, c.pending...)
				}
				return
			}
			c.commit(prepend(created))
		})
	}()
}

// UpdateTask renames a confirmed todo. Nothing changes until the server
// answers.
func (c *Controller) UpdateTask(id int64, title string) {
	c.mutateTodo("update", id, domain.TodoPatch{Title: &title})
}

// ToggleTask sets the completion flag of a confirmed todo.
func (c *Controller) ToggleTask(id int64, completed bool) {
	c.mutateTodo("toggle", id, domain.TodoPatch{Completed: &completed})
}

func (c *Controller) mutateTodo(op string, id int64, patch domain.TodoPatch) {
	if c.rejectTemporary(op, id) || !c.begin(nil) {
		return
	}
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()

		updated, err := c.api.Update(ctx, id, patch)
		c.settle(func() {
			if err != nil {
				c.fail(op, err, zap.Int64("id", id))
				return
			}
			c.commit(replace(updated))
		})
	}()
}

// DeleteTask removes a confirmed todo once the server acknowledges it.
func (c *Controller) DeleteTask(id int64) {
	if c.rejectTemporary("delete", id) || !c.begin(nil) {
		return
	}
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()

		err := c.api.Delete(ctx, id)
		c.settle(func() {
			if err != nil {
				c.fail("delete", err, zap.Int64("id", id))
				return
			}
			c.commit(remove(id))
		})
	}()
}

// Snapshot returns the effective list and status flags.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Todos:     Fold(c.authoritative, c.pending),
		Loading:   c.loading,
		Busy:      c.inflight > 0,
		LastError: c.lastErr,
	}
}

// Changes signals state changes. Bursts are coalesced into one signal; the
// channel is closed by Close.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Wait blocks until every issued operation has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight calls, waits for them to settle and rejects
// further operations.
func (c *Controller) Close() {
	c.stop.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
		close(c.changes)
	})
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.base, c.cfg.RequestTimeout)
}

// begin registers an in-flight operation and applies its speculative step.
func (c *Controller) begin(apply func()) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.inflight++
	c.wg.Add(1)
	c.lastErr = ""
	if apply != nil {
		apply()
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// settle reconciles a finished operation. Reset actions are dropped once no
// operation is in flight.
func (c *Controller) settle(reconcile func()) {
	c.mu.Lock()
	reconcile()
	c.inflight--
	if c.inflight == 0 {
		c.pending = dropResets(c.pending)
	}
	c.mu.Unlock()

	c.notify()
	c.wg.Done()
}

// commit applies a confirmed mutation to the authoritative list and to every
// snapshot held by the pending log. Callers hold mu.
func (c *Controller) commit(t transform) {
	c.authoritative = t(c.authoritative)
	rebased := make([]PendingAction, len(c.pending))
	for i, action := range c.pending {
		action.Snapshot = t(action.Snapshot)
		rebased[i] = action
	}
	c.pending = rebased
}

// takeAction removes the pending action with the given sequence number.
// Callers hold mu.
func (c *Controller) takeAction(seq uint64) (PendingAction, bool) {
	var taken PendingAction
	found := false
	rest := make([]PendingAction, 0, len(c.pending))
	for _, action := range c.pending {
		if action.seq == seq {
			taken, found = action, true
			continue
		}
		rest = append(rest, action)
	}
	c.pending = rest
	return taken, found
}

// fail records a failed operation. Callers hold mu.
func (c *Controller) fail(op string, err error, fields ...zap.Field) {
	c.lastErr = op + ": " + err.Error()
	fields = append(fields, zap.String("op", op), zap.Error(err))
	c.logger.Error("todo operation failed", fields...)
}

func (c *Controller) rejectTemporary(op string, id int64) bool {
	if id > 0 {
		return false
	}
	c.logger.Warn("todo is not saved yet", zap.String("op", op), zap.Int64("id", id))
	return true
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func clonePending(pending []PendingAction) []PendingAction {
	out := make([]PendingAction, len(pending), len(pending)+1)
	copy(out, pending)
	return out
}

func dropResets(pending []PendingAction) []PendingAction {
	out := make([]PendingAction, 0, len(pending))
	for _, action := range pending {
		if action.Kind != ActionReset {
			out = append(out, action)
		}
	}
	return out
}
