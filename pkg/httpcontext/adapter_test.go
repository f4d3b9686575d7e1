package httpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/todo/pkg/logger"
)

func TestAttachKeepsIncomingRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set(HeaderRequestID, "req-42")
	rc.SetUserValue(string(KeySubject), "alice")

	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	if got := appLogger.RequestID(ctx); got != "req-42" {
		t.Errorf("request id: got %q", got)
	}
	if got := string(rc.Response.Header.Peek(HeaderRequestID)); got != "req-42" {
		t.Errorf("echoed header: got %q", got)
	}
	if got := Subject(ctx); got != "alice" {
		t.Errorf("subject: got %q", got)
	}
}

func TestAttachGeneratesRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	if _, err := uuid.Parse(appLogger.RequestID(ctx)); err != nil {
		t.Errorf("expected uuid request id: %v", err)
	}
}

func TestAttachAppliesTimeoutAndBase(t *testing.T) {
	base, stop := context.WithCancel(context.Background())
	adapter := NewAdapterWithBase(base, time.Minute)

	var rc fasthttp.RequestCtx
	ctx, cancel := adapter.Attach(&rc)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > time.Minute {
		t.Fatalf("expected deadline within a minute, got %v %v", deadline, ok)
	}

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context not cancelled with base")
	}
}

func TestNonPositiveTimeoutFallsBack(t *testing.T) {
	if got := NewAdapter(0).Timeout(); got != 5*time.Second {
		t.Errorf("got %v", got)
	}
}
