package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"exoplanet-classifier-be/pkg/exo"

	"github.com/viterin/vek/vek32"
)

// Hit is one search result: the position of the row in the index and its cosine distance to the query.
type Hit struct {
	Position int
	Distance float32
}

// Index is an exact cosine nearest-neighbor index over a fixed set of rows.
// It is immutable once built. vectors[i] was produced from rows[i].
type Index struct {
	vectors [][]float32
	norms   []float32
	rows    []exo.Row
	dim     int
}

// NewIndex copies vectors and rows into a new index.
func NewIndex(vectors [][]float32, rows []exo.Row) (*Index, error) {
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("index needs one vector per row: %d vectors, %d rows", len(vectors), len(rows))
	}

	ix := &Index{
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float32, len(vectors)),
		rows:    append([]exo.Row(nil), rows...),
	}
	for i, v := range vectors {
		if i == 0 {
			ix.dim = len(v)
		}
		if len(v) != ix.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), ix.dim)
		}
		ix.vectors[i] = append([]float32(nil), v...)
		ix.norms[i] = norm(v)
	}
	return ix, nil
}

// EmptyIndex answers every query with zero hits.
func EmptyIndex() *Index {
	ix, _ := NewIndex(nil, nil)
	return ix
}

func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.rows)
}

// Dimension is zero for an empty index.
func (ix *Index) Dimension() int {
	return ix.dim
}

func (ix *Index) Row(position int) exo.Row {
	return ix.rows[position]
}

// Rows returns a copy of the indexed rows in insertion order.
func (ix *Index) Rows() []exo.Row {
	return append([]exo.Row(nil), ix.rows...)
}

// Vectors returns a copy of the indexed vectors in insertion order.
func (ix *Index) Vectors() [][]float32 {
	out := make([][]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		out[i] = append([]float32(nil), v...)
	}
	return out
}

// Search returns up to n hits ordered by ascending distance. Equal distances keep insertion order.
func (ix *Index) Search(query []float32, n int) ([]Hit, error) {
	if ix.Len() == 0 || n <= 0 {
		return []Hit{}, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(query), ix.dim)
	}
	n = min(n, len(ix.vectors))

	qn := norm(query)
	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Position: i, Distance: cosineDistance(query, qn, v, ix.norms[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})
	return hits[:n], nil
}

func norm(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(vek32.Dot(v, v))))
}

func cosineDistance(a []float32, an float32, b []float32, bn float32) float32 {
	if an == 0 || bn == 0 {
		return 1
	}
	return 1 - vek32.Dot(a, b)/(an*bn)
}
