// Package chain assembles layered configuration lookups for nodes, resolving
// effective runtime parameters across node, campaign, caller and library scopes.
package chain

// Layer is one read-only configuration mapping. Layers are never mutated by
// the chain; an absent layer is an empty map, never an error.
type Layer map[string]any

// Chain is a priority-ordered list of layers. Layers earlier in the list win
// on key collision.
type Chain struct {
	layers []Layer
}

// New builds a chain from highest-priority to lowest-priority layers. Nil
// layers are normalized to empty maps.
func New(layers ...Layer) *Chain {
	normalized := make([]Layer, len(layers))

	for i, layer := range layers {
		if layer == nil {
			layer = Layer{}
		}

		normalized[i] = layer
	}

	return &Chain{layers: normalized}
}

// Get scans the layers front-to-back and returns the first value found.
func (c *Chain) Get(key string) (any, bool) {
	for _, layer := range c.layers {
		if value, ok := layer[key]; ok {
			return value, true
		}
	}

	return nil, false
}

// Layers returns the chain's layers in priority order.
func (c *Chain) Layers() []Layer {
	return c.layers
}

// Flatten materializes a single flat map by applying the layers from lowest
// to highest priority, for callers needing a plain map such as template
// rendering contexts. The underlying layers are left untouched.
func (c *Chain) Flatten() map[string]any {
	flat := make(map[string]any)

	for i := len(c.layers) - 1; i >= 0; i-- {
		for key, value := range c.layers[i] {
			flat[key] = value
		}
	}

	return flat
}
