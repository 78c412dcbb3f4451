package hooks

// Name identifies a hook point. Names are opaque case-sensitive strings;
// the registry imposes no structure on them. The constants below catalogue
// the lifecycle hooks conversational runtimes conventionally fire, but any
// string is a valid name.
type Name string

// Well-known lifecycle hook names.
const (
	// HookConversationStart fires when a conversation begins.
	HookConversationStart Name = "conversation_start"

	// HookConversationEnd fires when a conversation ends.
	HookConversationEnd Name = "conversation_end"

	// HookUserInput fires when user input is received.
	HookUserInput Name = "user_input"

	// HookResponseStart fires when the assistant begins producing a response.
	HookResponseStart Name = "response_start"

	// HookResponseComplete fires when an assistant response is complete.
	HookResponseComplete Name = "response_complete"

	// HookTurnComplete fires when a full conversational turn has finished.
	HookTurnComplete Name = "turn_complete"

	// HookToolBefore fires before a tool invocation.
	HookToolBefore Name = "tool_before"

	// HookToolAfter fires after a tool invocation returns.
	HookToolAfter Name = "tool_after"

	// HookError fires when the runtime encounters an error.
	HookError Name = "error"
)

var knownHooks = []Name{
	HookConversationStart,
	HookConversationEnd,
	HookUserInput,
	HookResponseStart,
	HookResponseComplete,
	HookTurnComplete,
	HookToolBefore,
	HookToolAfter,
	HookError,
}

// KnownHooks returns the catalogue of well-known lifecycle hook names.
// The returned slice is a copy and may be modified freely.
func KnownHooks() []Name {
	out := make([]Name, len(knownHooks))
	copy(out, knownHooks)
	return out
}

// IsKnown reports whether name is one of the well-known lifecycle hooks.
func IsKnown(name Name) bool {
	for _, known := range knownHooks {
		if name == known {
			return true
		}
	}
	return false
}
