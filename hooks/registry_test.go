package hooks

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/taliolabs/hookline/logger"
)

func TestRegistryDispatchesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var order []int
	for i := range 5 {
		reg.Register(HookTurnComplete, func(Event) {
			order = append(order, i)
		})
	}

	reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))

	if len(order) != 5 {
		t.Fatalf("expected 5 handlers to run, got %d", len(order))
	}
	for pos, got := range order {
		if got != pos {
			t.Fatalf("expected handler %d at position %d, got %d", pos, pos, got)
		}
	}
}

func TestRegistryTriggerWithoutHandlersIsNoOp(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	// Must not panic or block.
	reg.Trigger(Name("nobody-home"), NewEvent("nobody-home").WithData("payload"))

	if reg.HasHandlers("nobody-home") {
		t.Fatal("trigger alone must not create a registration")
	}
}

func TestRegistryHandlerReceivesTypedEvent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var got Event
	reg.Register(HookUserInput, func(e Event) { got = e })

	reg.Trigger(HookUserInput, NewEvent(HookUserInput).WithData(map[string]any{"input": "hello"}))

	if got.Type != HookUserInput {
		t.Fatalf("expected type %q, got %q", HookUserInput, got.Type)
	}
	data, ok := got.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", got.Data)
	}
	if data["input"] != "hello" {
		t.Fatalf("expected input %q, got %v", "hello", data["input"])
	}
}

func TestRegistryHandlerReceivesNilDataUntouched(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var sawData any = "sentinel"
	reg.Register(HookResponseStart, func(e Event) { sawData = e.Data })

	reg.Trigger(HookResponseStart, NewEvent(HookResponseStart))

	if sawData != nil {
		t.Fatalf("expected nil data, got %v", sawData)
	}
}

func TestRegistryHandlersReceiveIndependentCopies(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	reg.Register(HookUserInput, func(e Event) {
		data := e.Data.(map[string]any)
		data["input"] = "mutated"
		data["extra"] = true
	})

	var second map[string]any
	reg.Register(HookUserInput, func(e Event) {
		second = e.Data.(map[string]any)
	})

	original := map[string]any{"input": "hello", "tags": []any{"a", "b"}}
	reg.Trigger(HookUserInput, NewEvent(HookUserInput).WithData(original))

	if got := second["input"]; got != "hello" {
		t.Fatalf("second handler saw sibling mutation: input = %v", got)
	}
	if _, leaked := second["extra"]; leaked {
		t.Fatal("second handler saw a key added by its sibling")
	}
	if got := original["input"]; got != "hello" {
		t.Fatalf("caller payload was mutated: input = %v", got)
	}
}

func TestRegistryHandlerCount(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	if got := reg.HandlerCount(HookError); got != 0 {
		t.Fatalf("expected 0 handlers before registration, got %d", got)
	}

	for range 3 {
		reg.Register(HookError, func(Event) {})
	}
	reg.Register(HookUserInput, func(Event) {})

	if got := reg.HandlerCount(HookError); got != 3 {
		t.Fatalf("expected 3 handlers, got %d", got)
	}
	if got := reg.HandlerCount(HookUserInput); got != 1 {
		t.Fatalf("expected counts to be independent per name, got %d", got)
	}
}

func TestRegistrySameHandlerMayRegisterTwice(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var calls atomic.Int32
	handler := func(Event) { calls.Add(1) }

	reg.Register(HookTurnComplete, handler)
	reg.Register(HookTurnComplete, handler)

	reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))

	if got := reg.HandlerCount(HookTurnComplete); got != 2 {
		t.Fatalf("expected 2 registrations, got %d", got)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected handler to run once per registration, got %d", got)
	}
}

func TestRegistryHasHandlersFollowsRegistrations(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	if reg.HasHandlers(HookToolBefore) {
		t.Fatal("expected no handlers on a fresh registry")
	}

	reg.Register(HookToolBefore, func(Event) {})
	if !reg.HasHandlers(HookToolBefore) {
		t.Fatal("expected handlers after registration")
	}

	reg.Clear(HookToolBefore)
	if reg.HasHandlers(HookToolBefore) {
		t.Fatal("expected no handlers after clear")
	}
}

func TestRegistryClearOnlyAffectsGivenName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(HookToolBefore, func(Event) {})
	reg.Register(HookToolAfter, func(Event) {})

	reg.Clear(HookToolBefore)
	reg.Clear(Name("never-registered")) // no-op

	if reg.HasHandlers(HookToolBefore) {
		t.Fatal("cleared name still has handlers")
	}
	if got := reg.HandlerCount(HookToolAfter); got != 1 {
		t.Fatalf("clear leaked into another name, count %d", got)
	}
}

func TestRegistryClearAllEmptiesEveryName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, name := range KnownHooks() {
		reg.Register(name, func(Event) {})
	}

	reg.ClearAll()

	if got := reg.Names(); len(got) != 0 {
		t.Fatalf("expected no names after ClearAll, got %v", got)
	}

	// The registry stays usable after a full reset.
	reg.Register(HookError, func(Event) {})
	if got := reg.HandlerCount(HookError); got != 1 {
		t.Fatalf("expected registry to accept registrations after ClearAll, got %d", got)
	}
}

func TestRegistryNamesAreSorted(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(HookUserInput, func(Event) {})
	reg.Register(HookError, func(Event) {})
	reg.Register(HookToolAfter, func(Event) {})

	got := reg.Names()
	want := []Name{HookError, HookToolAfter, HookUserInput}
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected names %v, got %v", want, got)
		}
	}
}

func TestRegistryRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	var faults []string
	reg := NewRegistry(WithPanicHandler(func(hook Name, recovered any, stack []byte) {
		faults = append(faults, fmt.Sprintf("%s: %v", hook, recovered))
		if len(stack) == 0 {
			t.Error("expected a captured stack")
		}
	}))

	var ran []string
	reg.Register(HookError, func(Event) { ran = append(ran, "first") })
	reg.Register(HookError, func(Event) { panic("boom") })
	reg.Register(HookError, func(Event) { ran = append(ran, "third") })

	reg.Trigger(HookError, NewEvent(HookError))

	if len(ran) != 2 || ran[0] != "first" || ran[1] != "third" {
		t.Fatalf("expected siblings before and after the panic to run, got %v", ran)
	}
	if len(faults) != 1 || faults[0] != "error: boom" {
		t.Fatalf("expected one recorded fault, got %v", faults)
	}
}

func TestRegistryHandlerRegisteredAfterPanickerStillRuns(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithPanicHandler(func(Name, any, []byte) {}))

	reg.Register(HookTurnComplete, func(Event) { panic("boom") })

	var calls atomic.Int32
	reg.Register(HookTurnComplete, func(Event) { calls.Add(1) })

	reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected handler registered after the panicking one to run, got %d calls", got)
	}
}

func TestRegistryDefaultPanicSinkKeepsDispatchAlive(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var ran bool
	reg.Register(HookError, func(Event) { panic("unreported") })
	reg.Register(HookError, func(Event) { ran = true })

	reg.Trigger(HookError, NewEvent(HookError))

	if !ran {
		t.Fatal("sibling did not run under the default panic sink")
	}
}

func TestRegistryPanicSinkFaultIsContained(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithPanicHandler(func(Name, any, []byte) {
		panic("sink is broken too")
	}))

	var ran bool
	reg.Register(HookError, func(Event) { panic("boom") })
	reg.Register(HookError, func(Event) { ran = true })

	reg.Trigger(HookError, NewEvent(HookError))

	if !ran {
		t.Fatal("a faulty panic sink must not stop dispatch")
	}
}

func TestRegistryHandlerMayRegisterDuringDispatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var late atomic.Int32
	reg.Register(HookResponseStart, func(Event) {
		reg.Register(HookResponseStart, func(Event) { late.Add(1) })
	})

	reg.Trigger(HookResponseStart, NewEvent(HookResponseStart))

	if got := late.Load(); got != 0 {
		t.Fatalf("handler added mid-dispatch ran in the same dispatch, count %d", got)
	}
	if got := reg.HandlerCount(HookResponseStart); got != 2 {
		t.Fatalf("expected 2 handlers after dispatch, got %d", got)
	}

	reg.Trigger(HookResponseStart, NewEvent(HookResponseStart))

	if got := late.Load(); got != 1 {
		t.Fatalf("expected the added handler to run on the next dispatch, got %d", got)
	}
}

func TestRegistryHandlerMayClearOwnHookDuringDispatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var ran []string
	reg.Register(HookConversationEnd, func(Event) {
		ran = append(ran, "clearer")
		reg.Clear(HookConversationEnd)
	})
	reg.Register(HookConversationEnd, func(Event) {
		ran = append(ran, "sibling")
	})

	reg.Trigger(HookConversationEnd, NewEvent(HookConversationEnd))

	// The snapshot taken at trigger time still includes both handlers.
	if len(ran) != 2 {
		t.Fatalf("expected the in-flight dispatch to finish, got %v", ran)
	}
	if reg.HasHandlers(HookConversationEnd) {
		t.Fatal("expected the name to be cleared after dispatch")
	}
}

func TestRegistryHandlerMayTriggerAnotherHook(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var nested bool
	reg.Register(HookToolAfter, func(Event) { nested = true })
	reg.Register(HookToolBefore, func(Event) {
		reg.Trigger(HookToolAfter, NewEvent(HookToolAfter))
	})

	reg.Trigger(HookToolBefore, NewEvent(HookToolBefore))

	if !nested {
		t.Fatal("nested trigger did not reach its handler")
	}
}

func TestRegistryConcurrentRegisterAndTrigger(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var calls atomic.Int64

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 100 {
				reg.Register(HookTurnComplete, func(Event) { calls.Add(1) })
			}
			return nil
		})
	}
	for range 4 {
		g.Go(func() error {
			for range 50 {
				reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := reg.HandlerCount(HookTurnComplete); got != 800 {
		t.Fatalf("expected every concurrent registration to land, got %d", got)
	}

	before := calls.Load()
	reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))
	if got := calls.Load() - before; got != 800 {
		t.Fatalf("expected one call per registered handler, got %d", got)
	}
}

func TestRegistryRepeatedTriggersReachEveryHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()

	var turns, audits atomic.Int32
	reg.Register(HookTurnComplete, func(Event) { turns.Add(1) })
	reg.Register(HookTurnComplete, func(Event) { audits.Add(1) })

	for turn := 1; turn <= 2; turn++ {
		reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete).WithData(map[string]any{"turn": float64(turn)}))
	}

	if got := turns.Load(); got != 2 {
		t.Fatalf("expected first counter at 2, got %d", got)
	}
	if got := audits.Load(); got != 2 {
		t.Fatalf("expected second counter at 2, got %d", got)
	}
}

func TestRegistryObserverSeesDispatchSummary(t *testing.T) {
	t.Parallel()

	var dispatches []Dispatch
	reg := NewRegistry(
		WithObserver(func(d Dispatch) { dispatches = append(dispatches, d) }),
		WithPanicHandler(func(Name, any, []byte) {}),
	)

	reg.Register(HookError, func(Event) {})
	reg.Register(HookError, func(Event) { panic("boom") })

	reg.Trigger(HookError, NewEvent(HookError))

	if len(dispatches) != 1 {
		t.Fatalf("expected one dispatch summary, got %d", len(dispatches))
	}
	d := dispatches[0]
	if d.Hook != HookError || d.Handlers != 2 || d.Panics != 1 {
		t.Fatalf("unexpected dispatch summary: %+v", d)
	}
	if d.Duration < 0 {
		t.Fatalf("negative dispatch duration: %v", d.Duration)
	}
}

func TestRegistryDispatchLoggingObserver(t *testing.T) {
	// Mutates the global logger output; must not run in parallel.
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLevel(slog.LevelDebug)
	defer logger.SetOutput(nil)

	reg := NewRegistry(WithDispatchLogging())
	reg.Register(HookTurnComplete, func(Event) {})

	reg.Trigger(HookTurnComplete, NewEvent(HookTurnComplete))

	out := buf.String()
	if !strings.Contains(out, "Hook Dispatch") {
		t.Fatalf("expected a dispatch log line, got %q", out)
	}
	if !strings.Contains(out, string(HookTurnComplete)) {
		t.Fatalf("dispatch log missing hook name: %q", out)
	}
	if !strings.Contains(out, "handlers=1") {
		t.Fatalf("dispatch log missing handler count: %q", out)
	}
}

func TestRegistryObserverFaultIsContained(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithObserver(func(Dispatch) {
		panic("observer is broken")
	}))

	var calls atomic.Int32
	reg.Register(HookUserInput, func(Event) { calls.Add(1) })

	reg.Trigger(HookUserInput, NewEvent(HookUserInput))
	reg.Trigger(HookUserInput, NewEvent(HookUserInput))

	if got := calls.Load(); got != 2 {
		t.Fatalf("a faulty observer must not affect dispatch, got %d calls", got)
	}
}
