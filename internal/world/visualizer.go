package world

// Visualizer receives entity poses from DebugVisualize. Implementations are a
// pure side channel for external rendering and must not mutate the bodies.
type Visualizer interface {
	Publish(name string, bodies []*Body)
}
