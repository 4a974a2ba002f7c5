package embedding

import (
	"context"
	"hash/fnv"
)

// LocalProvider embeds text by hashing character trigrams into a fixed number of buckets.
// It needs no network and is deterministic, which makes it usable offline and in tests.
type LocalProvider struct {
	Dimension int
}

func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalProvider{Dimension: dimension}
}

func (p *LocalProvider) Name() string {
	return "local/trigram"
}

func (p *LocalProvider) Generate(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.embed(t)
	}
	return vectors, nil
}

func (p *LocalProvider) embed(text string) []float32 {
	v := make([]float32, p.Dimension)
	padded := "  " + text + "  "
	for i := 0; i+3 <= len(padded); i++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(padded[i : i+3]))
		v[h.Sum32()%uint32(p.Dimension)]++
	}
	return normalizeVector(v)
}
