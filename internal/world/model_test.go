package world

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByteArena/box2d"

	"github.com/flatsim/flatsim/internal/document"
)

func newTestScene() *box2d.B2World {
	scene := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	return &scene
}

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMakeModelBuildsBodies(t *testing.T) {
	path := writeModel(t, `
bodies:
  - name: base
    type: dynamic
    footprints:
      - type: circle
        radius: 0.5
  - name: bumper
    type: static
    pose: [1.0, 0.0, 0.0]
    footprints:
      - type: polygon
        points: [[-0.1, -0.1], [0.1, -0.1], [0.1, 0.1], [-0.1, 0.1]]
        sensor: true
`)
	m, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "", "bot")
	if err != nil {
		t.Fatalf("MakeModel() error: %v", err)
	}
	if len(m.Bodies()) != 2 {
		t.Fatalf("bodies = %d, want 2", len(m.Bodies()))
	}
	if m.GetBody("base") == nil || m.GetBody("bumper") == nil {
		t.Fatal("GetBody should find declared bodies")
	}
	if got := m.GetBody("base").Physics().GetType(); got != box2d.B2BodyType.B2_dynamicBody {
		t.Fatalf("base type = %v, want dynamic", got)
	}
	pos := m.GetBody("bumper").Physics().GetPosition()
	if pos.X != 1.0 || pos.Y != 0.0 {
		t.Fatalf("bumper local pose = (%v, %v), want (1, 0)", pos.X, pos.Y)
	}
}

func TestMakeModelErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing bodies", "plugins: []\n"},
		{"body without name", `
bodies:
  - type: dynamic
`},
		{"duplicate body name", `
bodies:
  - name: base
  - name: base
`},
		{"unknown body type", `
bodies:
  - name: base
    type: floating
`},
		{"body pose wrong arity", `
bodies:
  - name: base
    pose: [1, 2]
`},
		{"circle without radius", `
bodies:
  - name: base
    footprints:
      - type: circle
`},
		{"polygon too few points", `
bodies:
  - name: base
    footprints:
      - type: polygon
        points: [[0, 0], [1, 0]]
`},
		{"unknown footprint type", `
bodies:
  - name: base
    footprints:
      - type: blob
`},
		{"joint with unknown body", `
bodies:
  - name: base
joints:
  - type: revolute
    bodies: [base, ghost]
`},
		{"joint with one body", `
bodies:
  - name: base
joints:
  - type: revolute
    bodies: [base]
`},
		{"unknown joint type", `
bodies:
  - name: a
  - name: b
joints:
  - type: rope
    bodies: [a, b]
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeModel(t, tc.yaml)
			_, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "", "bot")
			var cfgErr *document.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("MakeModel() error = %v, want ConfigError", err)
			}
		})
	}
}

func TestMakeModelJoints(t *testing.T) {
	path := writeModel(t, `
bodies:
  - name: chassis
    footprints:
      - type: circle
        radius: 0.5
  - name: wheel
    pose: [0.5, 0.0, 0.0]
    footprints:
      - type: circle
        radius: 0.2
joints:
  - type: revolute
    bodies: [chassis, wheel]
    anchor: [0.5, 0.0]
  - type: weld
    bodies: [chassis, wheel]
`)
	m, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "", "cart")
	if err != nil {
		t.Fatalf("MakeModel() error: %v", err)
	}
	if got := len(m.Joints()); got != 2 {
		t.Fatalf("joints = %d, want 2", got)
	}
}

func TestTransformAllIsRigid(t *testing.T) {
	path := writeModel(t, `
bodies:
  - name: base
  - name: arm
    pose: [1.0, 0.0, 0.0]
`)
	m, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "", "bot")
	if err != nil {
		t.Fatalf("MakeModel() error: %v", err)
	}

	// Quarter turn at (2, 3): the arm's local +x offset must land on +y.
	m.TransformAll([3]float64{2, 3, math.Pi / 2})

	base := m.GetBody("base").Physics().GetPosition()
	if math.Abs(base.X-2) > 1e-9 || math.Abs(base.Y-3) > 1e-9 {
		t.Fatalf("base at (%v, %v), want (2, 3)", base.X, base.Y)
	}
	arm := m.GetBody("arm").Physics().GetPosition()
	if math.Abs(arm.X-2) > 1e-9 || math.Abs(arm.Y-4) > 1e-9 {
		t.Fatalf("arm at (%v, %v), want (2, 4)", arm.X, arm.Y)
	}
	if got := m.GetBody("arm").Physics().GetAngle(); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("arm angle = %v, want pi/2", got)
	}

	// Relative offset survives a second transform.
	m.TransformAll([3]float64{0, 0, 0})
	base = m.GetBody("base").Physics().GetPosition()
	arm = m.GetBody("arm").Physics().GetPosition()
	dx, dy := arm.X-base.X, arm.Y-base.Y
	if math.Abs(math.Hypot(dx, dy)-1.0) > 1e-9 {
		t.Fatalf("body spacing = %v, want 1.0", math.Hypot(dx, dy))
	}
}

func TestModelTopic(t *testing.T) {
	path := writeModel(t, "bodies:\n  - name: base\n")
	plain, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "", "bot")
	if err != nil {
		t.Fatal(err)
	}
	if got := plain.topic(); got != "bot" {
		t.Fatalf("topic = %q, want bot", got)
	}
	spaced, err := MakeModel(newTestScene(), NewCollisionFilterRegistry(), path, "team", "bot")
	if err != nil {
		t.Fatal(err)
	}
	if got := spaced.topic(); got != "team/bot" {
		t.Fatalf("topic = %q, want team/bot", got)
	}
}
