// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"sort"

	"github.com/meshbio/dossier-engine/pkg/types"
)

// FuseRankings merges two or more independently produced rankings with
// reciprocal rank fusion: each document's fused score is the sum over input
// rankings of 1/(k + rank), with rank 1-based. A document absent from a list
// contributes nothing for that list. Output is sorted descending by fused
// score; ties keep the order in which documents first appear across the
// inputs, so fusion of identical inputs is an identity.
func FuseRankings(rankings [][]types.RankedResult, k float64) []types.RankedResult {
	if k <= 0 {
		k = 60
	}

	fused := make(map[string]*types.RankedResult)
	var order []string // document IDs in first-appearance order

	for _, ranking := range rankings {
		for rank, r := range ranking {
			entry, ok := fused[r.Document.ID]
			if !ok {
				entry = &types.RankedResult{Document: r.Document}
				fused[r.Document.ID] = entry
				order = append(order, r.Document.ID)
			}
			entry.Score += 1.0 / (k + float64(rank+1))
		}
	}

	results := make([]types.RankedResult, len(order))
	for i, id := range order {
		results[i] = *fused[id]
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
