package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// LexicalProvider is the statistical fallback: a feature-hashed
// term-frequency vectorizer. No corpus fitting, no model downloads;
// the vector is a pure function of the text, so identical inputs
// always produce bit-identical vectors.
type LexicalProvider struct {
	dim          int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewLexicalProvider(dim int) (*LexicalProvider, error) {
	return &LexicalProvider{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}, nil
}

func (p *LexicalProvider) Name() string   { return "lexical" }
func (p *LexicalProvider) Dimension() int { return p.dim }

func (p *LexicalProvider) EmbedOne(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dim)
	for _, tok := range p.tokenize(text) {
		vec[p.bucket(tok)]++
	}
	l2Normalize(vec)
	return vec, nil
}

func (p *LexicalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (p *LexicalProvider) bucket(token string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(p.dim))
}

func (p *LexicalProvider) tokenize(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := p.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below",
		"out", "off", "own", "same", "too", "very", "can", "will", "just",
		"what", "which", "who", "whom", "how", "when", "where", "why", "do",
		"does", "did", "has", "have", "had", "not", "no", "nor", "s", "t",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
