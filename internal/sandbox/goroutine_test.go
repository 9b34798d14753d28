package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
)

func nextEvent(t *testing.T, u Unit) Event {
	t.Helper()
	select {
	case ev := <-u.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event from unit")
		return Event{}
	}
}

func TestGoroutineUnitResult(t *testing.T) {
	u := NewGoroutineUnit(MermaidValidator())
	defer u.Terminate()

	require.NoError(t, u.Send(Request{ID: "1", Content: "pie\n\"a\" : 1"}))
	ev := nextEvent(t, u)
	assert.Equal(t, EventResult, ev.Kind)
	assert.Equal(t, "1", ev.ID)
	assert.NoError(t, ev.Err)

	require.NoError(t, u.Send(Request{ID: "2", Content: "pie\n\"a\" : x"}))
	ev = nextEvent(t, u)
	assert.Equal(t, EventResult, ev.Kind)
	assert.True(t, errors.IsSyntax(ev.Err))
}

func TestGoroutineUnitPanicIsCrash(t *testing.T) {
	u := NewGoroutineUnit(func(string) error { panic("parser state corrupted") })
	defer u.Terminate()

	require.NoError(t, u.Send(Request{ID: "1", Content: "graph TD"}))
	ev := nextEvent(t, u)
	assert.Equal(t, EventError, ev.Kind)
	assert.Contains(t, ev.Err.Error(), "parser state corrupted")
	assert.Equal(t, EventExit, nextEvent(t, u).Kind)

	_, open := <-u.Events()
	assert.False(t, open)
}

func TestGoroutineUnitTerminate(t *testing.T) {
	u := NewGoroutineUnit(MermaidValidator())
	require.NoError(t, u.Terminate())
	require.NoError(t, u.Terminate())

	err := u.Send(Request{ID: "1", Content: "graph TD"})
	assert.True(t, errors.IsInfrastructure(err))
}

func TestPoolRecoversFromPanickingValidator(t *testing.T) {
	calls := 0
	factory := GoroutineFactory(func() ValidateFunc {
		calls++
		first := calls == 1
		return func(content string) error {
			if first {
				panic("boom")
			}
			return nil
		}
	})
	p := NewPool(Config{Size: 1}, factory, logging.NewNopLogger())
	defer p.Shutdown(context.Background())

	err := p.Validate(context.Background(), "graph TD")
	assert.Equal(t, errors.ErrCodeWorkerCrashed, errors.Code(err))

	assert.NoError(t, p.Validate(context.Background(), "graph TD"))
}
