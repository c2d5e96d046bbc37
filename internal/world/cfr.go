package world

import "errors"

// MaxLayers is the collision-class budget. Box2D filter category bits are a
// uint16, one bit per layer.
const MaxLayers = 16

var (
	ErrLayerExists = errors.New("layer already exists")
	ErrLayersFull  = errors.New("layer registry is full")
)

// CollisionFilterRegistry allocates collision classes for layers. Each layer
// gets one category bit; model footprints reference layers by name to build
// their fixture filters.
type CollisionFilterRegistry struct {
	layers map[string]int
	next   int
}

func NewCollisionFilterRegistry() *CollisionFilterRegistry {
	return &CollisionFilterRegistry{layers: make(map[string]int)}
}

// RegisterLayer allocates a collision class for name and returns its ID.
func (r *CollisionFilterRegistry) RegisterLayer(name string) (int, error) {
	if _, ok := r.layers[name]; ok {
		return -1, ErrLayerExists
	}
	if r.next >= MaxLayers {
		return -1, ErrLayersFull
	}
	id := r.next
	r.next++
	r.layers[name] = id
	return id, nil
}

// LookupLayerID returns the ID allocated for name, or -1 when unknown.
func (r *CollisionFilterRegistry) LookupLayerID(name string) int {
	id, ok := r.layers[name]
	if !ok {
		return -1
	}
	return id
}

func (r *CollisionFilterRegistry) LayerCount() int    { return r.next }
func (r *CollisionFilterRegistry) IsLayersFull() bool { return r.next >= MaxLayers }

// CategoryBits builds the filter bits for a set of layer names. Unknown names
// contribute nothing; with no names the bits cover every registered layer.
func (r *CollisionFilterRegistry) CategoryBits(names ...string) uint16 {
	if len(names) == 0 {
		var bits uint16
		for _, id := range r.layers {
			bits |= 1 << uint(id)
		}
		return bits
	}
	var bits uint16
	for _, name := range names {
		if id, ok := r.layers[name]; ok {
			bits |= 1 << uint(id)
		}
	}
	return bits
}
