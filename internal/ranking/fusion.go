package ranking

import (
	"sort"

	"github.com/cloudwego/eino/schema"
)

// rrfC is the reciprocal-rank-fusion smoothing constant.
const rrfC = 60

// FuseRRF merges ranked lists with weighted reciprocal-rank fusion:
// score(d) = sum_i weights[i] / (rank_i(d) + c), rank starting at 1.
// Documents are identified by ID; ties keep first-appearance order.
func FuseRRF(lists [][]*schema.Document, weights []float64) []*schema.Document {
	scores := map[string]float64{}
	var order []*schema.Document
	for i, list := range lists {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for rank, d := range list {
			if _, seen := scores[d.ID]; !seen {
				order = append(order, d)
			}
			scores[d.ID] += w / float64(rank+1+rrfC)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a].ID] > scores[order[b].ID]
	})
	return order
}
