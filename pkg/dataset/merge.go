package dataset

import (
	"math/rand"

	"exoplanet-classifier-be/pkg/exo"
)

// Merge appends row sets in order, keeping the first row for each id.
func Merge(sets ...[]exo.Row) (merged []exo.Row, duplicates int) {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, r := range set {
			if _, ok := seen[r.ID]; ok {
				duplicates++
				continue
			}
			seen[r.ID] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged, duplicates
}

// Split shuffles rows with seed and cuts off round(len*testRatio) rows as the test part.
// The same rows, ratio and seed always give the same partition.
func Split(rows []exo.Row, testRatio float64, seed int64) (train, test []exo.Row) {
	if testRatio <= 0 || len(rows) == 0 {
		return append([]exo.Row(nil), rows...), nil
	}
	if testRatio > 1 {
		testRatio = 1
	}

	order := rand.New(rand.NewSource(seed)).Perm(len(rows))
	nTest := int(float64(len(rows))*testRatio + 0.5)

	inTest := make([]bool, len(rows))
	for _, i := range order[:nTest] {
		inTest[i] = true
	}
	for i, r := range rows {
		if inTest[i] {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	return train, test
}

// IDs lists the ids of rows in order.
func IDs(rows []exo.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
