package retriever

import (
	"context"

	"exoplanet-classifier-be/pkg/exo"
	"exoplanet-classifier-be/pkg/heldout"
	"exoplanet-classifier-be/pkg/vectorstore"
)

const DefaultOverFetch = 3

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type Neighbor struct {
	Row      exo.Row `json:"row"`
	Distance float32 `json:"distance"`
}

type Result struct {
	Neighbors      []Neighbor
	QueryEmbedding []float32
}

// Rows returns the neighbor rows in similarity order.
func (r *Result) Rows() []exo.Row {
	rows := make([]exo.Row, len(r.Neighbors))
	for i, n := range r.Neighbors {
		rows[i] = n.Row
	}
	return rows
}

type Retriever struct {
	embedder  QueryEmbedder
	overFetch int
}

func New(embedder QueryEmbedder, overFetch int) *Retriever {
	if overFetch < 1 {
		overFetch = DefaultOverFetch
	}
	return &Retriever{embedder: embedder, overFetch: overFetch}
}

// FindSimilar returns up to k labeled neighbors of query, most similar first, skipping excluded ids.
// It asks the index for k*overFetch candidates and widens to the whole index only when
// exclusions leave fewer than k.
func (r *Retriever) FindSimilar(ctx context.Context, query exo.Row, bundle *vectorstore.Bundle, k int, exclude heldout.Excluder) (*Result, error) {
	text, err := exo.Format(query)
	if err != nil {
		return nil, err
	}
	vec, err := r.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}

	result := &Result{Neighbors: []Neighbor{}, QueryEmbedding: vec}
	total := bundle.Len()
	if total == 0 || k <= 0 {
		return result, nil
	}
	if exclude == nil {
		exclude = heldout.None{}
	}

	n := min(total, k*r.overFetch)
	hits, err := bundle.Index.Search(vec, n)
	if err != nil {
		return nil, err
	}
	result.Neighbors = collect(bundle.Index, hits, 0, k, exclude, result.Neighbors)

	if len(result.Neighbors) < k && n < total {
		hits, err = bundle.Index.Search(vec, total)
		if err != nil {
			return nil, err
		}
		result.Neighbors = collect(bundle.Index, hits, n, k, exclude, result.Neighbors)
	}
	return result, nil
}

func collect(ix *vectorstore.Index, hits []vectorstore.Hit, from, k int, exclude heldout.Excluder, out []Neighbor) []Neighbor {
	for _, h := range hits[from:] {
		if len(out) >= k {
			break
		}
		row := ix.Row(h.Position)
		if exclude.Contains(row.ID) {
			continue
		}
		out = append(out, Neighbor{Row: row, Distance: h.Distance})
	}
	return out
}
