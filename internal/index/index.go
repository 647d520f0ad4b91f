// ABOUTME: Cosine similarity index over the chunk vectors of one document
// ABOUTME: Backed by the sqlite-vec brute-force index; ties are ordered by build position
package index

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/viant/sqlite-vec/index/bruteforce"
)

// Result is one ranked hit
type Result struct {
	ID    int
	Score float64
}

// Index maps caller ids onto a brute-force index keyed by build position
type Index struct {
	ids []int
	bf  bruteforce.Index
}

// Build replaces the index contents. ids and vecs must be parallel slices of
// equal-dimension vectors.
func (x *Index) Build(ids []int, vecs [][]float64) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vecs))
	}

	keys := make([]string, len(vecs))
	vecs32 := make([][]float32, len(vecs))
	for i, v := range vecs {
		keys[i] = strconv.Itoa(i)
		vecs32[i] = toFloat32(v)
	}
	if err := x.bf.Build(keys, vecs32); err != nil {
		return err
	}

	x.ids = make([]int, len(ids))
	copy(x.ids, ids)
	return nil
}

// Len returns the number of indexed vectors
func (x *Index) Len() int {
	return len(x.ids)
}

// Search returns up to k results, best first. Equal scores keep build order.
// Zero vectors have no direction and never match.
func (x *Index) Search(query []float64, k int) ([]Result, error) {
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}

	// rank everything so ties at the k boundary resolve by position, not by sort luck
	keys, scores, err := x.bf.Query(toFloat32(query), 0)
	if err != nil {
		return nil, err
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, len(keys))
	for i, key := range keys {
		pos, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("unexpected index key %q: %w", key, err)
		}
		hits[i] = hit{pos: pos, score: scores[i]}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, k)
	for i := range out {
		out[i] = Result{ID: x.ids[hits[i].pos], Score: hits[i].score}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
