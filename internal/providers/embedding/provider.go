package embedding

import "context"

// Provider turns text into fixed-dimension vectors. Implementations conform
// their native output to the configured dimension so every provider writes
// into the same vector column.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// conformDimension truncates vectors longer than dim and zero-pads shorter
// ones. Mixing providers with different native dimensions is lossy but keeps
// the index usable during a provider failover.
func conformDimension(vec []float32, dim int) []float32 {
	if len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}
