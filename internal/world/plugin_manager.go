package world

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"go.uber.org/zap"

	"github.com/flatsim/flatsim/internal/document"
	"github.com/flatsim/flatsim/internal/timekeeper"
)

// PluginError reports a behavior unit that failed to load or initialize.
type PluginError struct {
	Msg string
	Err error
}

func (e *PluginError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *PluginError) Unwrap() error { return e.Err }

// ModelPlugin is a behavior unit bound to a model. Hooks run synchronously on
// the simulation goroutine and have unrestricted access to the world: plugins
// are trusted same-process extension code, the core offers no isolation.
type ModelPlugin interface {
	// Initialize binds the plugin to its world and model using the plugin's
	// fragment from the model document.
	Initialize(w *World, m *Model, cfg *document.Node) error

	BeforePhysicsStep(tk *timekeeper.Timekeeper)
	AfterPhysicsStep(tk *timekeeper.Timekeeper)

	BeginContact(contact box2d.B2ContactInterface)
	EndContact(contact box2d.B2ContactInterface)
	PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold)
	PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse)

	// Close releases any resources the plugin holds, script VMs included.
	// Called exactly once, from world teardown.
	Close()
}

// PluginBase provides no-op hook implementations for plugins that only care
// about a subset. Initialize is intentionally left to the plugin.
type PluginBase struct{}

func (PluginBase) BeforePhysicsStep(*timekeeper.Timekeeper)                    {}
func (PluginBase) AfterPhysicsStep(*timekeeper.Timekeeper)                     {}
func (PluginBase) BeginContact(box2d.B2ContactInterface)                       {}
func (PluginBase) EndContact(box2d.B2ContactInterface)                         {}
func (PluginBase) PreSolve(box2d.B2ContactInterface, box2d.B2Manifold)         {}
func (PluginBase) PostSolve(box2d.B2ContactInterface, *box2d.B2ContactImpulse) {}
func (PluginBase) Close()                                                      {}

// PluginFactory creates an uninitialized plugin instance.
type PluginFactory func() ModelPlugin

var pluginTypes = map[string]PluginFactory{}

// RegisterPluginType makes a plugin type available to model documents under
// the given name. Meant to be called from init functions of plugin packages.
func RegisterPluginType(name string, factory PluginFactory) {
	if _, ok := pluginTypes[name]; ok {
		panic("plugin type registered twice: " + name)
	}
	pluginTypes[name] = factory
}

// PluginManager owns every loaded behavior unit and dispatches step-phase and
// contact hooks to them in registration order.
type PluginManager struct {
	world   *World
	plugins []ModelPlugin
	log     *zap.Logger
}

func newPluginManager(w *World, log *zap.Logger) *PluginManager {
	return &PluginManager{world: w, log: log}
}

// LoadModelPlugin instantiates the plugin declared by node and binds it to m.
func (pm *PluginManager) LoadModelPlugin(m *Model, node *document.Node) error {
	if !node.IsMapping() {
		return &PluginError{Msg: fmt.Sprintf("invalid plugin entry in model %s, must be a mapping", m.Name())}
	}
	typeName, ok := node.Get("type").AsString()
	if !ok || typeName == "" {
		return &PluginError{Msg: fmt.Sprintf("missing plugin \"type\" in model %s", m.Name())}
	}
	factory, ok := pluginTypes[typeName]
	if !ok {
		return &PluginError{Msg: fmt.Sprintf("unknown plugin type %q in model %s", typeName, m.Name())}
	}
	p := factory()
	if err := p.Initialize(pm.world, m, node); err != nil {
		return &PluginError{
			Msg: fmt.Sprintf("plugin type %q failed to initialize for model %s", typeName, m.Name()),
			Err: err,
		}
	}
	pm.plugins = append(pm.plugins, p)
	pm.log.Debug("plugin loaded", zap.String("type", typeName), zap.String("model", m.Name()))
	return nil
}

// Count returns the number of loaded plugins.
func (pm *PluginManager) Count() int { return len(pm.plugins) }

// Close releases every loaded plugin in registration order and forgets them.
// A plugin whose Initialize failed was never registered and has already
// cleaned up after itself.
func (pm *PluginManager) Close() {
	for _, p := range pm.plugins {
		p.Close()
	}
	pm.plugins = nil
}

func (pm *PluginManager) BeforePhysicsStep(tk *timekeeper.Timekeeper) {
	for _, p := range pm.plugins {
		p.BeforePhysicsStep(tk)
	}
}

func (pm *PluginManager) AfterPhysicsStep(tk *timekeeper.Timekeeper) {
	for _, p := range pm.plugins {
		p.AfterPhysicsStep(tk)
	}
}

func (pm *PluginManager) BeginContact(contact box2d.B2ContactInterface) {
	for _, p := range pm.plugins {
		p.BeginContact(contact)
	}
}

func (pm *PluginManager) EndContact(contact box2d.B2ContactInterface) {
	for _, p := range pm.plugins {
		p.EndContact(contact)
	}
}

func (pm *PluginManager) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {
	for _, p := range pm.plugins {
		p.PreSolve(contact, oldManifold)
	}
}

func (pm *PluginManager) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
	for _, p := range pm.plugins {
		p.PostSolve(contact, impulse)
	}
}
