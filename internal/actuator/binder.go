// Package actuator resolves named morph channels on a loaded model and
// writes per-frame influence weights into its meshes.
//
// The viseme and expression engines drive disjoint channel-name sets, so
// both may apply through the same binder without coordination.
package actuator

import (
	"sync"

	"github.com/normanking/visage/internal/model"
	"github.com/rs/zerolog"
)

// slotRef records where one channel lives on one mesh.
type slotRef struct {
	mesh *model.Mesh
	slot int
}

// Binder holds a flat channel-name index built once per model load.
// Channels absent from a mesh are simply not indexed; a nil graph makes
// every operation a no-op.
type Binder struct {
	mu     sync.RWMutex
	graph  *model.Graph
	index  map[string][]slotRef
	logger zerolog.Logger
}

// NewBinder creates a binder with no model bound.
func NewBinder(logger zerolog.Logger) *Binder {
	return &Binder{
		index:  make(map[string][]slotRef),
		logger: logger.With().Str("component", "actuator").Logger(),
	}
}

// SetModel rebinds to a new graph and rebuilds the channel index. The old
// index is discarded whole; stale slots never survive a model swap.
func (b *Binder) SetModel(graph *model.Graph) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.graph = graph
	b.index = make(map[string][]slotRef)

	if graph == nil {
		b.logger.Debug().Msg("Model cleared")
		return
	}

	channels := 0
	for _, mesh := range graph.Meshes {
		for name, slot := range mesh.MorphNames {
			if slot < 0 || slot >= len(mesh.Influences) {
				continue
			}
			b.index[name] = append(b.index[name], slotRef{mesh: mesh, slot: slot})
			channels++
		}
	}

	b.logger.Info().
		Int("meshes", len(graph.Meshes)).
		Int("bones", len(graph.Bones)).
		Int("channels", channels).
		Msg("Actuator index rebuilt")
}

// Graph returns the currently bound graph, which may be nil.
func (b *Binder) Graph() *model.Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graph
}

// Apply writes each weight into every mesh carrying that channel name.
// Channels no mesh exposes are skipped without error; partial blend-shape
// coverage across meshes is expected.
func (b *Binder) Apply(weights map[string]float32) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.graph == nil {
		return
	}

	for name, value := range weights {
		for _, ref := range b.index[name] {
			ref.mesh.Influences[ref.slot] = clamp(value, 0, 1)
		}
	}
}

// Channels returns the channel names the bound model exposes.
func (b *Binder) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.index))
	for name := range b.index {
		names = append(names, name)
	}
	return names
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
