package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taliolabs/hookline/hooks"
)

// countAction returns a factory whose handler increments *counter.
func countAction(counter *int) ActionFactory {
	return func(params map[string]any) (hooks.Handler, error) {
		return func(hooks.Event) { *counter++ }, nil
	}
}

func TestApply_RegistersBindings(t *testing.T) {
	m, err := Load([]byte(validManifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var recorded, audited int
	require.NoError(t, Apply(reg, m, Actions{
		"record": countAction(&recorded),
		"audit":  countAction(&audited),
	}))

	assert.Equal(t, 1, reg.HandlerCount(hooks.HookTurnComplete))
	assert.Equal(t, 1, reg.HandlerCount(hooks.HookToolBefore))
	assert.Equal(t, 1, reg.HandlerCount(hooks.HookToolAfter))

	reg.Trigger(hooks.HookTurnComplete, hooks.NewEvent(hooks.HookTurnComplete))
	reg.Trigger(hooks.HookToolBefore, hooks.NewEvent(hooks.HookToolBefore))

	assert.Equal(t, 1, recorded)
	assert.Equal(t, 1, audited)
}

func TestApply_FactoryReceivesParams(t *testing.T) {
	m, err := Load([]byte(validManifest))
	require.NoError(t, err)

	var gotDestination string
	reg := hooks.NewRegistry()
	var recorded int
	require.NoError(t, Apply(reg, m, Actions{
		"record": countAction(&recorded),
		"audit": func(params map[string]any) (hooks.Handler, error) {
			gotDestination, _ = params["destination"].(string)
			return func(hooks.Event) {}, nil
		},
	}))

	assert.Equal(t, "audit-log", gotDestination)
}

func TestApply_UnknownAction(t *testing.T) {
	m, err := Load([]byte(validManifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	err = Apply(reg, m, Actions{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestApply_OptionalBindingSkipped(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: maybe
    hooks: [error]
    action: not-provided
    optional: true
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	require.NoError(t, Apply(reg, m, Actions{}))
	assert.Equal(t, 0, reg.HandlerCount(hooks.HookError))
}

func TestApply_FactoryError(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: broken
    hooks: [error]
    action: fail
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	err = Apply(reg, m, Actions{
		"fail": func(map[string]any) (hooks.Handler, error) {
			return nil, assert.AnError
		},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestApply_WhenFilter(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: slow-tools-only
    hooks: [tool_after]
    action: record
    when: "duration_ms > ` + "`1000`" + `"
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var count int
	require.NoError(t, Apply(reg, m, Actions{"record": countAction(&count)}))

	fast := hooks.NewEvent(hooks.HookToolAfter).WithData(map[string]any{"duration_ms": float64(50)})
	slow := hooks.NewEvent(hooks.HookToolAfter).WithData(map[string]any{"duration_ms": float64(5000)})

	reg.Trigger(hooks.HookToolAfter, fast)
	assert.Equal(t, 0, count)

	reg.Trigger(hooks.HookToolAfter, slow)
	assert.Equal(t, 1, count)
}

func TestApply_WhenInvalidExpression(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: broken
    hooks: [error]
    action: record
    when: "invalid[["
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var count int
	err = Apply(reg, m, Actions{"record": countAction(&count)})
	assert.Error(t, err)
}

func TestApply_SchemaGate(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: typed-input
    hooks: [user_input]
    action: record
    schema:
      type: object
      required: [input]
      properties:
        input:
          type: string
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var count int
	require.NoError(t, Apply(reg, m, Actions{"record": countAction(&count)}))

	invalid := hooks.NewEvent(hooks.HookUserInput).WithData(map[string]any{"other": true})
	valid := hooks.NewEvent(hooks.HookUserInput).WithData(map[string]any{"input": "hi"})

	reg.Trigger(hooks.HookUserInput, invalid)
	assert.Equal(t, 0, count)

	reg.Trigger(hooks.HookUserInput, valid)
	assert.Equal(t, 1, count)
}

func TestApply_InvalidSchema(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: broken
    hooks: [user_input]
    action: record
    schema:
      type: 42
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var count int
	err = Apply(reg, m, Actions{"record": countAction(&count)})
	assert.Error(t, err)
}

func TestApply_CustomHookNamesAllowed(t *testing.T) {
	manifest := `
apiVersion: hookline/v1
kind: HookBindings
bindings:
  - name: custom
    hooks: [my_custom_hook]
    action: record
`
	m, err := Load([]byte(manifest))
	require.NoError(t, err)

	reg := hooks.NewRegistry()
	var count int
	require.NoError(t, Apply(reg, m, Actions{"record": countAction(&count)}))

	reg.Trigger(hooks.Name("my_custom_hook"), hooks.NewEvent("my_custom_hook"))
	assert.Equal(t, 1, count)
}
