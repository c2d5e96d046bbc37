// Package world owns the authoritative physics scene of the simulator. It
// builds the scene from a declarative world document, advances it in fixed
// steps and relays contact events into the behavior-unit layer.
package world

import (
	"path/filepath"

	"github.com/ByteArena/box2d"
	"go.uber.org/zap"

	"github.com/flatsim/flatsim/internal/document"
	"github.com/flatsim/flatsim/internal/timekeeper"
)

// Solver sub-iteration counts per physics step. Fixed; not a tuning surface.
const (
	velocityIterations = 10
	positionIterations = 10
)

// World aggregates the physics scene, static layers, dynamic models, the
// collision-class registry and the plugin manager. Exactly one physics scene
// exists per World and it outlives every layer and model built into it.
//
// World is single-goroutine: loading, stepping and teardown must happen from
// the same goroutine, mirroring its use in the simulation loop.
type World struct {
	gravity   box2d.B2Vec2
	physics   *box2d.B2World
	layers    []*Layer
	models    []*Model
	cfr       *CollisionFilterRegistry
	plugins   *PluginManager
	viz       Visualizer
	log       *zap.Logger
	destroyed bool
}

func newWorld(log *zap.Logger) *World {
	w := &World{
		gravity: box2d.MakeB2Vec2(0, 0),
		cfr:     NewCollisionFilterRegistry(),
		log:     log,
	}
	scene := box2d.MakeB2World(w.gravity)
	w.physics = &scene
	w.physics.SetContactListener(w)
	w.plugins = newPluginManager(w, log)
	return w
}

// Load builds a ready World from the document at worldFile. Any failure tears
// the partially built world down and returns a document.ConfigError for
// schema/content faults or a PluginError for behavior-unit load faults.
func Load(worldFile string, log *zap.Logger) (*World, error) {
	doc, err := document.Load(worldFile)
	if err != nil {
		return nil, err
	}
	if err := document.ValidateWorld(doc); err != nil {
		return nil, err
	}

	// The properties section is required and must be a mapping. Its contents
	// are reserved and deliberately not interpreted yet.
	props := doc.Get("properties")
	if props == nil || !props.IsMapping() {
		return nil, document.Errorf("missing/invalid world param \"properties\" in %s", worldFile)
	}

	w := newWorld(log)
	dir := filepath.Dir(worldFile)

	if err := w.loadLayers(doc, dir); err != nil {
		w.log.Error("error loading layers", zap.Error(err))
		w.Destroy()
		return nil, err
	}
	if err := w.loadModels(doc, dir); err != nil {
		w.log.Error("error loading models", zap.Error(err))
		w.Destroy()
		return nil, err
	}

	log.Info("world loaded",
		zap.String("file", worldFile),
		zap.Int("layers", len(w.layers)),
		zap.Int("models", len(w.models)))
	return w, nil
}

// loadLayers builds every entry of the required `layers` sequence, in
// document order. Order matters only for diagnostics and teardown; layers do
// not interact with each other.
func (w *World) loadLayers(doc *document.Node, dir string) error {
	layersNode := doc.Get("layers")
	if layersNode == nil || !layersNode.IsSequence() {
		return document.Errorf("missing/invalid world param \"layers\" in %s", doc.File())
	}
	for _, node := range layersNode.Entries() {
		if w.cfr.IsLayersFull() {
			return document.Errorf("max number of layers reached, max is %d", MaxLayers)
		}
		layer, err := MakeLayer(w.physics, w.cfr, dir, node)
		if err != nil {
			return err
		}
		w.layers = append(w.layers, layer)
		w.log.Info("layer loaded", zap.String("name", layer.Name()))
	}
	return nil
}

// loadModels builds the optional `models` sequence in document order. Each
// entry names a model fragment, a placement pose and an optional namespace.
func (w *World) loadModels(doc *document.Node, dir string) error {
	modelsNode := doc.Get("models")
	if modelsNode == nil {
		return nil
	}
	if !modelsNode.IsSequence() {
		return document.Errorf("invalid world param \"models\" in %s, must be a sequence", doc.File())
	}
	for i, node := range modelsNode.Entries() {
		name, ok := node.Get("name").AsString()
		if !ok || name == "" {
			return document.Errorf("missing model name in model index=%d", i)
		}
		ns, _ := node.Get("namespace").AsString()

		pose, ok := node.Get("pose").Pose()
		if !ok {
			return document.Errorf("missing/invalid \"pose\" in %s model, must be 3 numbers", name)
		}

		modelPath, ok := node.Get("model").AsString()
		if !ok || modelPath == "" {
			return document.Errorf("missing \"model\" in %s model", name)
		}
		if !filepath.IsAbs(modelPath) {
			modelPath = filepath.Join(dir, modelPath)
		}

		if err := w.LoadModel(modelPath, ns, name, pose); err != nil {
			return err
		}
	}
	return nil
}

// LoadModel builds the model fragment at modelPath, applies the placement
// pose as a single rigid transform and registers the model's declared
// behavior units.
func (w *World) LoadModel(modelPath, ns, name string, pose [3]float64) error {
	m, err := MakeModel(w.physics, w.cfr, modelPath, ns, name)
	if err != nil {
		return err
	}
	m.TransformAll(pose)
	w.models = append(w.models, m)

	// It is fine for a model to declare no plugins.
	if m.plugins != nil {
		if !m.plugins.IsSequence() {
			return document.Errorf("invalid \"plugins\" in %s model, not a list", m.Name())
		}
		for _, pn := range m.plugins.Entries() {
			if err := w.plugins.LoadModelPlugin(m, pn); err != nil {
				return err
			}
		}
	}

	w.log.Info("model loaded", zap.String("name", m.Name()), zap.String("namespace", ns))
	return nil
}

// Update advances the simulation by exactly one fixed step. Before-hooks see
// the pre-step scene, after-hooks see the post-step scene with updated
// elapsed time; no hook ever observes a half-stepped world.
func (w *World) Update(tk *timekeeper.Timekeeper) {
	w.plugins.BeforePhysicsStep(tk)
	w.physics.Step(tk.StepSize(), velocityIterations, positionIterations)
	tk.StepTime()
	w.plugins.AfterPhysicsStep(tk)
}

// World implements box2d.B2ContactListenerInterface as a pure relay: every
// contact callback is forwarded verbatim to the plugin manager, which owns
// all fixture matching and filtering.

func (w *World) BeginContact(contact box2d.B2ContactInterface) {
	w.plugins.BeginContact(contact)
}

func (w *World) EndContact(contact box2d.B2ContactInterface) {
	w.plugins.EndContact(contact)
}

func (w *World) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {
	w.plugins.PreSolve(contact, oldManifold)
}

func (w *World) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
	w.plugins.PostSolve(contact, impulse)
}

// SetVisualizer installs the sink used by DebugVisualize. Nil disables it.
func (w *World) SetVisualizer(v Visualizer) { w.viz = v }

// DebugVisualize publishes entity poses to the visualizer. Models move every
// step and are always published; layers are static, so they are republished
// only when updateLayers is set. Has no effect on simulation state.
func (w *World) DebugVisualize(updateLayers bool) {
	if w.viz == nil {
		return
	}
	if updateLayers {
		for _, l := range w.layers {
			l.DebugVisualize(w.viz)
		}
	}
	for _, m := range w.models {
		m.DebugVisualize(w.viz)
	}
}

// Destroy tears the world down. Idempotent. The order is load-bearing:
//
//  1. Detach the contact listener so no contact can dispatch into entities
//     that are mid-teardown.
//  2. Close the behavior units so script VMs release their resources while
//     the scene they may reference still exists.
//  3. Release each layer's physics handle before dropping the layer. A layer
//     can carry thousands of fixtures; destroying them individually would
//     restructure the broad-phase tree per fixture, while the scene below
//     frees them in bulk.
//  4. Drop models as-is. Their fixture counts are small, and a behavior unit
//     holding a stale body handle should fail loudly rather than be hidden.
//  5. Drop the physics scene, which releases every remaining body, fixture
//     and joint.
func (w *World) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	w.log.Info("destroying world")

	w.physics.SetContactListener(nil)
	w.plugins.Close()

	for _, l := range w.layers {
		l.body.release()
	}
	w.layers = nil

	w.models = nil

	w.physics = nil
	w.log.Info("world destroyed")
}

// Destroyed reports whether Destroy has run.
func (w *World) Destroyed() bool { return w.destroyed }

// Layers returns the loaded layers in document order.
func (w *World) Layers() []*Layer { return w.layers }

// Models returns the loaded models in document order.
func (w *World) Models() []*Model { return w.models }

// Physics returns the owned physics scene. Nil after Destroy.
func (w *World) Physics() *box2d.B2World { return w.physics }

// CFR returns the world's collision-class registry.
func (w *World) CFR() *CollisionFilterRegistry { return w.cfr }

// Plugins returns the world's plugin manager.
func (w *World) Plugins() *PluginManager { return w.plugins }

// Log returns the world's logger, for plugins that need one.
func (w *World) Log() *zap.Logger { return w.log }

// GetModel returns the model with the given name, or nil.
func (w *World) GetModel(name string) *Model {
	for _, m := range w.models {
		if m.name == name {
			return m
		}
	}
	return nil
}

var _ box2d.B2ContactListenerInterface = (*World)(nil)
