package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashProvider is the last-resort backend: character trigrams hashed
// into a fixed-width vector. It cannot fail to initialize and needs no
// vocabulary, at the cost of retrieval quality.
type HashProvider struct {
	dim int
}

func NewHashProvider(dim int) (*HashProvider, error) {
	return &HashProvider{dim: dim}, nil
}

func (p *HashProvider) Name() string   { return "hash" }
func (p *HashProvider) Dimension() int { return p.dim }

func (p *HashProvider) EmbedOne(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dim)
	runes := []rune(strings.ToLower(text))
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		vec[int(h.Sum32()%uint32(p.dim))]++
	}
	l2Normalize(vec)
	return vec, nil
}

func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.EmbedOne(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}
