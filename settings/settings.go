// Package settings loads declarative hook bindings from YAML manifests and
// applies them to a registry. A manifest names actions and the hook points
// they should run on; the host supplies the action implementations as
// factories, so manifests stay free of code.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/taliolabs/hookline/hooks"
	"github.com/taliolabs/hookline/version"
)

// Manifest schema identifiers.
const (
	// APIVersion is the manifest apiVersion this package understands.
	APIVersion = "hookline/v1"

	// KindHookBindings is the manifest kind this package understands.
	KindHookBindings = "HookBindings"
)

// ErrInvalidManifest is returned when a manifest fails structural validation.
var ErrInvalidManifest = errors.New("invalid manifest")

// ErrEngineConstraint is returned when a manifest's engine constraint does
// not admit the running hookline version.
var ErrEngineConstraint = errors.New("engine constraint not satisfied")

// Manifest is a declarative set of hook bindings.
type Manifest struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	Engine     string    `yaml:"engine,omitempty"`
	Bindings   []Binding `yaml:"bindings"`
}

// Binding connects one named action to one or more hook points. Bindings
// register in the order they appear in the YAML list.
type Binding struct {
	// Name identifies the binding in logs and errors.
	Name string `yaml:"name"`

	// Hooks lists the hook names the action runs on.
	Hooks []string `yaml:"hooks"`

	// Action names the factory that builds the handler.
	Action string `yaml:"action"`

	// When is an optional JMESPath expression over the event data; the
	// handler runs only when it evaluates to a truthy value.
	When string `yaml:"when,omitempty"`

	// Schema is an optional JSON schema the event data must satisfy for
	// the handler to run.
	Schema map[string]any `yaml:"schema,omitempty"`

	// Optional bindings are skipped, not fatal, when their action is not
	// provided by the host.
	Optional bool `yaml:"optional,omitempty"`

	// With carries action-specific parameters to the factory.
	With map[string]any `yaml:"with,omitempty"`
}

// BindsTo returns true if the binding declares the given hook name.
func (b *Binding) BindsTo(hook hooks.Name) bool {
	for _, h := range b.Hooks {
		if hooks.Name(h) == hook {
			return true
		}
	}
	return false
}

// Load parses and validates a manifest from YAML bytes.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads and parses a manifest from a YAML file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-supplied configuration
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// validate checks manifest structure and the engine constraint.
func (m *Manifest) validate() error {
	if m.APIVersion != APIVersion {
		return fmt.Errorf("%w: unsupported apiVersion %q (want %q)", ErrInvalidManifest, m.APIVersion, APIVersion)
	}
	if m.Kind != KindHookBindings {
		return fmt.Errorf("%w: unsupported kind %q (want %q)", ErrInvalidManifest, m.Kind, KindHookBindings)
	}

	seen := make(map[string]bool, len(m.Bindings))
	for i := range m.Bindings {
		b := &m.Bindings[i]
		if b.Name == "" {
			return fmt.Errorf("%w: binding %d has no name", ErrInvalidManifest, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate binding name %q", ErrInvalidManifest, b.Name)
		}
		seen[b.Name] = true
		if b.Action == "" {
			return fmt.Errorf("%w: binding %q has no action", ErrInvalidManifest, b.Name)
		}
		if len(b.Hooks) == 0 {
			return fmt.Errorf("%w: binding %q lists no hooks", ErrInvalidManifest, b.Name)
		}
		for _, h := range b.Hooks {
			if h == "" {
				return fmt.Errorf("%w: binding %q lists an empty hook name", ErrInvalidManifest, b.Name)
			}
		}
	}

	return m.checkEngine(version.Version())
}

// checkEngine validates the engine constraint against the running version.
// Dev builds have no comparable version and pass any constraint.
func (m *Manifest) checkEngine(running string) error {
	if m.Engine == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(m.Engine)
	if err != nil {
		return fmt.Errorf("%w: invalid engine constraint %q: %v", ErrInvalidManifest, m.Engine, err)
	}

	current, err := semver.NewVersion(strings.TrimPrefix(running, "v"))
	if err != nil {
		// Not a release build; nothing meaningful to compare against.
		return nil
	}

	if !constraint.Check(current) {
		return fmt.Errorf("%w: running %s, manifest requires %q", ErrEngineConstraint, running, m.Engine)
	}
	return nil
}
