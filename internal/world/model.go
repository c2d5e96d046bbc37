package world

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/flatsim/flatsim/internal/document"
)

// Model is a placeable entity built from its own YAML fragment: one or more
// bodies with footprint fixtures, optional joints between them, and optional
// behavior-unit declarations consumed by the plugin manager.
type Model struct {
	name      string
	namespace string
	path      string
	bodies    []*Body
	joints    []box2d.B2JointInterface

	// plugins is the raw `plugins` node of the fragment; the world checks it
	// is a sequence and registers each entry after placement.
	plugins *document.Node
}

type modelBodyDef struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Pose       []float64      `yaml:"pose"`
	Footprints []footprintDef `yaml:"footprints"`
}

type footprintDef struct {
	Type        string      `yaml:"type"`
	Layers      []string    `yaml:"layers"`
	Density     float64     `yaml:"density"`
	Friction    float64     `yaml:"friction"`
	Restitution float64     `yaml:"restitution"`
	Sensor      bool        `yaml:"sensor"`
	Radius      float64     `yaml:"radius"`
	Center      []float64   `yaml:"center"`
	Points      [][]float64 `yaml:"points"`
}

type jointDef struct {
	Type             string    `yaml:"type"`
	Name             string    `yaml:"name"`
	Bodies           []string  `yaml:"bodies"`
	Anchor           []float64 `yaml:"anchor"`
	CollideConnected bool      `yaml:"collide_connected"`
}

// MakeModel builds a model from the fragment at modelPath. Bodies are created
// at their declared local poses; the world applies the placement pose
// afterwards via TransformAll.
func MakeModel(scene *box2d.B2World, cfr *CollisionFilterRegistry, modelPath, ns, name string) (*Model, error) {
	doc, err := document.Load(modelPath)
	if err != nil {
		return nil, err
	}

	bodiesNode := doc.Get("bodies")
	if bodiesNode == nil || !bodiesNode.IsSequence() {
		return nil, document.Errorf("missing/invalid \"bodies\" in model %s (%s)", name, modelPath)
	}

	m := &Model{name: name, namespace: ns, path: modelPath, plugins: doc.Get("plugins")}

	for i, bn := range bodiesNode.Entries() {
		var def modelBodyDef
		if err := bn.Decode(&def); err != nil {
			return nil, err
		}
		if def.Name == "" {
			return nil, document.Errorf("missing body name in body index=%d of model %s", i, name)
		}
		if m.GetBody(def.Name) != nil {
			return nil, document.Errorf("duplicate body %q in model %s", def.Name, name)
		}
		if def.Type == "" {
			def.Type = "dynamic"
		}
		var pose [3]float64
		if len(def.Pose) > 0 {
			if len(def.Pose) != 3 {
				return nil, document.Errorf("invalid \"pose\" in body %s of model %s, must be 3 numbers", def.Name, name)
			}
			copy(pose[:], def.Pose)
		}
		body, err := newBody(scene, m, def.Name, def.Type, pose)
		if err != nil {
			return nil, &document.ConfigError{Msg: fmt.Sprintf("invalid body %s in model %s", def.Name, name), Err: err}
		}
		for j, fp := range def.Footprints {
			if err := attachFootprint(body, cfr, fp); err != nil {
				return nil, &document.ConfigError{
					Msg: fmt.Sprintf("invalid footprint index=%d in body %s of model %s", j, def.Name, name),
					Err: err,
				}
			}
		}
		m.bodies = append(m.bodies, body)
	}

	jointsNode := doc.Get("joints")
	if jointsNode != nil {
		if !jointsNode.IsSequence() {
			return nil, document.Errorf("invalid \"joints\" in model %s, must be a sequence", name)
		}
		for i, jn := range jointsNode.Entries() {
			if err := m.attachJoint(scene, i, jn); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func attachFootprint(body *Body, cfr *CollisionFilterRegistry, fp footprintDef) error {
	fd := box2d.MakeB2FixtureDef()
	fd.Density = fp.Density
	if fd.Density == 0 {
		fd.Density = 1
	}
	fd.Friction = fp.Friction
	fd.Restitution = fp.Restitution
	fd.IsSensor = fp.Sensor
	bits := cfr.CategoryBits(fp.Layers...)
	fd.Filter.CategoryBits = bits
	fd.Filter.MaskBits = bits

	switch fp.Type {
	case "circle":
		if fp.Radius <= 0 {
			return fmt.Errorf("circle footprint requires a positive radius")
		}
		shape := box2d.MakeB2CircleShape()
		shape.M_radius = fp.Radius
		if len(fp.Center) == 2 {
			shape.M_p.Set(fp.Center[0], fp.Center[1])
		}
		fd.Shape = &shape
	case "polygon":
		if len(fp.Points) < 3 {
			return fmt.Errorf("polygon footprint requires at least 3 points")
		}
		verts := make([]box2d.B2Vec2, len(fp.Points))
		for i, p := range fp.Points {
			if len(p) != 2 {
				return fmt.Errorf("polygon point index=%d must have 2 numbers", i)
			}
			verts[i] = box2d.MakeB2Vec2(p[0], p[1])
		}
		shape := box2d.MakeB2PolygonShape()
		shape.Set(verts, len(verts))
		fd.Shape = &shape
	default:
		return fmt.Errorf("unsupported footprint type %q", fp.Type)
	}

	body.physics.CreateFixtureFromDef(&fd)
	return nil
}

func (m *Model) attachJoint(scene *box2d.B2World, index int, node *document.Node) error {
	var def jointDef
	if err := node.Decode(&def); err != nil {
		return err
	}
	if len(def.Bodies) != 2 {
		return document.Errorf("joint index=%d in model %s must reference exactly 2 bodies", index, m.name)
	}
	a, b := m.GetBody(def.Bodies[0]), m.GetBody(def.Bodies[1])
	if a == nil || b == nil {
		return document.Errorf("joint index=%d in model %s references unknown body", index, m.name)
	}
	var anchor box2d.B2Vec2
	if len(def.Anchor) == 2 {
		anchor = box2d.MakeB2Vec2(def.Anchor[0], def.Anchor[1])
	}

	switch def.Type {
	case "revolute":
		jd := box2d.MakeB2RevoluteJointDef()
		jd.Initialize(a.physics, b.physics, anchor)
		jd.CollideConnected = def.CollideConnected
		m.joints = append(m.joints, scene.CreateJoint(&jd))
	case "weld":
		jd := box2d.MakeB2WeldJointDef()
		jd.Initialize(a.physics, b.physics, anchor)
		jd.CollideConnected = def.CollideConnected
		m.joints = append(m.joints, scene.CreateJoint(&jd))
	default:
		return document.Errorf("unsupported joint type %q in model %s", def.Type, m.name)
	}
	return nil
}

// TransformAll applies one rigid transform (translate + rotate) uniformly to
// every body of the model. Local poses from the fragment are preserved
// relative to each other.
func (m *Model) TransformAll(pose [3]float64) {
	c, s := math.Cos(pose[2]), math.Sin(pose[2])
	for _, b := range m.bodies {
		p := b.physics.GetPosition()
		b.physics.SetTransform(
			box2d.MakeB2Vec2(pose[0]+c*p.X-s*p.Y, pose[1]+s*p.X+c*p.Y),
			b.physics.GetAngle()+pose[2],
		)
	}
}

func (m *Model) Name() string      { return m.name }
func (m *Model) Namespace() string { return m.namespace }

// Path returns the model fragment's file path; plugin scripts resolve
// relative paths against its directory.
func (m *Model) Path() string { return m.path }

// Bodies returns the model's bodies in declaration order.
func (m *Model) Bodies() []*Body { return m.bodies }

// Joints returns the joints created between the model's bodies.
func (m *Model) Joints() []box2d.B2JointInterface { return m.joints }

// GetBody returns the named body, or nil.
func (m *Model) GetBody(name string) *Body {
	for _, b := range m.bodies {
		if b.name == name {
			return b
		}
	}
	return nil
}

// topic is the namespaced identifier used for diagnostics and visualization.
func (m *Model) topic() string {
	if m.namespace == "" {
		return m.name
	}
	return m.namespace + "/" + m.name
}

// DebugVisualize publishes the model's bodies to v.
func (m *Model) DebugVisualize(v Visualizer) {
	v.Publish("model/"+m.topic(), m.bodies)
}
