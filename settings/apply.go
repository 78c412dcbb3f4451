package settings

import (
	"errors"
	"fmt"

	"github.com/jmespath/go-jmespath"
	"github.com/xeipuuv/gojsonschema"

	"github.com/taliolabs/hookline/hooks"
	"github.com/taliolabs/hookline/logger"
)

// ErrUnknownAction is returned when a non-optional binding names an action
// the host did not provide.
var ErrUnknownAction = errors.New("unknown action")

// ActionFactory builds a handler from a binding's `with:` parameters.
type ActionFactory func(params map[string]any) (hooks.Handler, error)

// Actions maps action names to their factories.
type Actions map[string]ActionFactory

// Apply registers every binding in the manifest on reg. For each binding it
// resolves the action factory, builds the handler, wraps it with the
// binding's `when:` and `schema:` gates, and registers it on every listed
// hook. A missing factory fails Apply unless the binding is optional, in
// which case the binding is skipped.
func Apply(reg *hooks.Registry, m *Manifest, actions Actions) error {
	for i := range m.Bindings {
		b := &m.Bindings[i]

		factory, ok := actions[b.Action]
		if !ok {
			if b.Optional {
				logger.BindingSkipped(b.Name, "action not provided", "action", b.Action)
				continue
			}
			return fmt.Errorf("binding %q: %w: %q", b.Name, ErrUnknownAction, b.Action)
		}

		handler, err := factory(b.With)
		if err != nil {
			return fmt.Errorf("binding %q: build action %q: %w", b.Name, b.Action, err)
		}

		handler, err = wrapWhen(handler, b)
		if err != nil {
			return err
		}
		handler, err = wrapSchema(handler, b)
		if err != nil {
			return err
		}

		for _, h := range b.Hooks {
			name := hooks.Name(h)
			if !hooks.IsKnown(name) {
				logger.Debug("binding targets custom hook", "binding", b.Name, "hook", h)
			}
			reg.Register(name, handler)
		}
		logger.BindingApplied(b.Name, b.Action, len(b.Hooks))
	}

	return nil
}

// wrapWhen gates the handler behind the binding's JMESPath predicate.
// The expression is compiled once, at apply time.
func wrapWhen(handler hooks.Handler, b *Binding) (hooks.Handler, error) {
	if b.When == "" {
		return handler, nil
	}

	expr, err := jmespath.Compile(b.When)
	if err != nil {
		return nil, fmt.Errorf("binding %q: invalid when expression %q: %w", b.Name, b.When, err)
	}

	name := b.Name
	return func(event hooks.Event) {
		result, err := expr.Search(event.Data)
		if err != nil || !isTruthy(result) {
			logger.BindingSkipped(name, "when expression did not match")
			return
		}
		handler(event)
	}, nil
}

// wrapSchema gates the handler behind the binding's JSON schema. Payloads
// that fail validation skip the handler with a warning rather than failing
// the dispatch.
func wrapSchema(handler hooks.Handler, b *Binding) (hooks.Handler, error) {
	if b.Schema == nil {
		return handler, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(b.Schema))
	if err != nil {
		return nil, fmt.Errorf("binding %q: invalid schema: %w", b.Name, err)
	}

	name := b.Name
	return func(event hooks.Event) {
		result, err := schema.Validate(gojsonschema.NewGoLoader(event.Data))
		if err != nil {
			logger.Warn("binding schema validation error", "binding", name, "error", err)
			return
		}
		if !result.Valid() {
			violations := make([]string, len(result.Errors()))
			for i, desc := range result.Errors() {
				violations[i] = desc.String()
			}
			logger.Warn("binding payload failed schema", "binding", name, "violations", violations)
			return
		}
		handler(event)
	}, nil
}

// isTruthy applies JMESPath result truthiness: nil, false, empty strings,
// and empty collections are falsy; everything else is truthy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
