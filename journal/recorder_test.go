package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/taliolabs/hookline/hooks"
)

func TestRecorder_HandlerAppends(t *testing.T) {
	j := NewMemoryJournal()
	rec := NewRecorder(j)
	reg := hooks.NewRegistry()

	reg.Register(hooks.HookUserInput, rec.Handler(hooks.HookUserInput))
	reg.Trigger(hooks.HookUserInput, hooks.NewEvent(hooks.HookUserInput).WithData(map[string]any{"input": "hi"}))
	reg.Trigger(hooks.HookUserInput, hooks.NewEvent(hooks.HookUserInput))

	entries, err := j.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, hooks.HookUserInput, entries[0].Hook)
}

func TestRecorder_AttachCoversCatalogue(t *testing.T) {
	j := NewMemoryJournal()
	rec := NewRecorder(j)
	reg := hooks.NewRegistry()

	rec.Attach(reg)

	for _, name := range hooks.KnownHooks() {
		assert.Equal(t, 1, reg.HandlerCount(name), "hook %q", name)
	}

	reg.Trigger(hooks.HookTurnComplete, hooks.NewEvent(hooks.HookTurnComplete))
	assert.Equal(t, 1, j.Len())
}

func TestRecorder_AttachSelectedHooks(t *testing.T) {
	j := NewMemoryJournal()
	rec := NewRecorder(j)
	reg := hooks.NewRegistry()

	rec.Attach(reg, hooks.HookError)

	assert.Equal(t, 1, reg.HandlerCount(hooks.HookError))
	assert.Equal(t, 0, reg.HandlerCount(hooks.HookUserInput))

	reg.Trigger(hooks.HookUserInput, hooks.NewEvent(hooks.HookUserInput))
	assert.Equal(t, 0, j.Len())
}

func TestRecorder_RateLimitDrops(t *testing.T) {
	j := NewMemoryJournal()
	rec := NewRecorder(j, WithRateLimit(rate.Limit(1), 2))
	reg := hooks.NewRegistry()

	rec.Attach(reg, hooks.HookTurnComplete)

	// Burst of 2 passes; the rest are shed.
	for i := 0; i < 10; i++ {
		reg.Trigger(hooks.HookTurnComplete, hooks.NewEvent(hooks.HookTurnComplete))
	}

	assert.Equal(t, 2, j.Len())
	assert.Equal(t, uint64(8), rec.Dropped())
}

func TestRecorder_ErrorHandler(t *testing.T) {
	j := NewMemoryJournal()
	require.NoError(t, j.Close())

	var gotHook hooks.Name
	var gotErr error
	rec := NewRecorder(j, WithErrorHandler(func(hook hooks.Name, err error) {
		gotHook = hook
		gotErr = err
	}))
	reg := hooks.NewRegistry()

	rec.Attach(reg, hooks.HookError)
	reg.Trigger(hooks.HookError, hooks.NewEvent(hooks.HookError))

	assert.Equal(t, hooks.HookError, gotHook)
	assert.True(t, errors.Is(gotErr, ErrClosed))
}
