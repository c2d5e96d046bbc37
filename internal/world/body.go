package world

import (
	"fmt"

	"github.com/ByteArena/box2d"
)

// Entity is anything that owns physics bodies in the world: a Layer or a
// Model. Contact callbacks resolve fixtures back to their Entity through the
// body's user data.
type Entity interface {
	Name() string
}

// Body wraps one Box2D body together with its owning entity. The physics
// handle may be nilled during world teardown while the wrapper is still
// reachable; see World.Destroy.
type Body struct {
	name    string
	owner   Entity
	physics *box2d.B2Body
}

var bodyTypes = map[string]uint8{
	"static":    box2d.B2BodyType.B2_staticBody,
	"kinematic": box2d.B2BodyType.B2_kinematicBody,
	"dynamic":   box2d.B2BodyType.B2_dynamicBody,
}

// newBody creates a Box2D body in scene at the given pose and links it back
// to the wrapper through user data.
func newBody(scene *box2d.B2World, owner Entity, name, bodyType string, pose [3]float64) (*Body, error) {
	bt, ok := bodyTypes[bodyType]
	if !ok {
		return nil, fmt.Errorf("invalid body type %q, must be static, kinematic or dynamic", bodyType)
	}
	b := &Body{name: name, owner: owner}
	def := box2d.MakeB2BodyDef()
	def.Type = bt
	def.Position = box2d.MakeB2Vec2(pose[0], pose[1])
	def.Angle = pose[2]
	def.UserData = b
	b.physics = scene.CreateBody(&def)
	return b, nil
}

func (b *Body) Name() string { return b.name }

// Owner returns the Layer or Model this body belongs to.
func (b *Body) Owner() Entity { return b.owner }

// Physics returns the underlying Box2D body. Nil after world teardown.
func (b *Body) Physics() *box2d.B2Body { return b.physics }

// release drops the physics handle without destroying the body in the scene.
// The scene itself is torn down in bulk afterwards, which is much cheaper
// than removing fixtures one at a time from the broad-phase tree.
func (b *Body) release() { b.physics = nil }
