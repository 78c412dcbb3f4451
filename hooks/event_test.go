package hooks

import (
	"encoding/json"
	"testing"
)

func TestNewEventCarriesNoData(t *testing.T) {
	t.Parallel()

	e := NewEvent(HookConversationStart)
	if e.Type != HookConversationStart {
		t.Fatalf("expected type %q, got %q", HookConversationStart, e.Type)
	}
	if e.Data != nil {
		t.Fatalf("expected nil data, got %v", e.Data)
	}
}

func TestWithDataReturnsModifiedCopy(t *testing.T) {
	t.Parallel()

	base := NewEvent(HookUserInput)
	loaded := base.WithData("hello")

	if loaded.Data != "hello" {
		t.Fatalf("expected payload on the copy, got %v", loaded.Data)
	}
	if base.Data != nil {
		t.Fatalf("WithData mutated its receiver: %v", base.Data)
	}
}

func TestCloneIsolatesNestedContainers(t *testing.T) {
	t.Parallel()

	original := NewEvent(HookToolAfter).WithData(map[string]any{
		"tool_name": "search",
		"result": map[string]any{
			"hits": []any{"a", "b"},
		},
	})

	clone := original.Clone()

	data := clone.Data.(map[string]any)
	data["tool_name"] = "mutated"
	data["result"].(map[string]any)["hits"].([]any)[0] = "mutated"

	root := original.Data.(map[string]any)
	if root["tool_name"] != "search" {
		t.Fatalf("clone mutation reached the original map: %v", root["tool_name"])
	}
	hits := root["result"].(map[string]any)["hits"].([]any)
	if hits[0] != "a" {
		t.Fatalf("clone mutation reached a nested slice: %v", hits[0])
	}
}

func TestCloneSharesValuesOutsideJSONKinds(t *testing.T) {
	t.Parallel()

	type opaque struct{ n int }
	ptr := &opaque{n: 7}

	clone := NewEvent(HookError).WithData(map[string]any{"ref": ptr}).Clone()

	if got := clone.Data.(map[string]any)["ref"]; got != ptr {
		t.Fatalf("expected non-JSON values to be shared, got %v", got)
	}
}

func TestEventJSONShape(t *testing.T) {
	t.Parallel()

	withData, err := json.Marshal(NewEvent(HookUserInput).WithData(map[string]any{"input": "hi"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(withData); got != `{"event_type":"user_input","data":{"input":"hi"}}` {
		t.Fatalf("unexpected encoding: %s", got)
	}

	bare, err := json.Marshal(NewEvent(HookResponseStart))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(bare); got != `{"event_type":"response_start"}` {
		t.Fatalf("expected data to be omitted when empty: %s", got)
	}
}
