package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"
)

// Provider turns text into fixed-dimension vectors. Every vector a
// provider instance returns has the same width for the life of the
// process; embedding is a pure function of the input text.
type Provider interface {
	Name() string
	Dimension() int
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Factory builds a candidate backend. Construction is where a backend
// may fail (missing API key, unreachable endpoint); a constructed
// provider is assumed usable for the process lifetime.
type Factory struct {
	Name  string
	Build func() (Provider, error)
}

// Select walks the ordered preference list once and pins the first
// backend that constructs without error. Called at process start.
func Select(factories []Factory, log *logger.Logger) (Provider, error) {
	for _, f := range factories {
		p, err := f.Build()
		if err != nil {
			log.Warn("embedding backend unavailable, trying next", "backend", f.Name, "error", err)
			continue
		}
		log.Info("embedding backend selected", "backend", p.Name(), "dimension", p.Dimension())
		return p, nil
	}
	return nil, fmt.Errorf("%w: no backend in preference list could initialize", entity.ErrEmbeddingBackend)
}

// fitDimension pads with zeros or truncates so a backend that
// intrinsically produces a different width never returns ragged output.
func fitDimension(vec []float32, dim int) []float32 {
	if len(vec) == dim {
		return vec
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

// l2Normalize scales the vector to unit length in place. Zero vectors
// are left untouched so cosine against them scores 0.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
