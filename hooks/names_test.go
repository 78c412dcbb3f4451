package hooks

import "testing"

func TestKnownHooksCatalogue(t *testing.T) {
	t.Parallel()

	catalogue := KnownHooks()
	if len(catalogue) != 9 {
		t.Fatalf("expected 9 well-known hooks, got %d", len(catalogue))
	}
	for _, name := range catalogue {
		if !IsKnown(name) {
			t.Fatalf("catalogue entry %q not reported as known", name)
		}
	}

	// Callers get a copy they can scribble on.
	catalogue[0] = "scribbled"
	if fresh := KnownHooks(); fresh[0] == "scribbled" {
		t.Fatal("KnownHooks returned shared backing storage")
	}
}

func TestIsKnownRejectsOtherNames(t *testing.T) {
	t.Parallel()

	for _, name := range []Name{"", "custom_hook", "Turn_Complete", "turn-complete"} {
		if IsKnown(name) {
			t.Fatalf("expected %q to be unknown", name)
		}
	}
}
