// Package ranking orders pose clusters into the final ranked result.
package ranking

import (
	"sort"

	"github.com/turtacn/BlindDock/internal/domain/cluster"
	"github.com/turtacn/BlindDock/internal/domain/pose"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// All disables truncation.
const All = -1

// Entry is one ranked cluster.  Rank is 1-based.
type Entry struct {
	Rank    int
	Cluster cluster.Cluster
}

// Result is the ranked, optionally truncated, set of clusters.
type Result struct {
	Entries []Entry
	// Total is the number of clusters before truncation.
	Total int
	TopK  int
}

// Len returns the number of ranked entries.
func (r *Result) Len() int { return len(r.Entries) }

// Empty reports whether nothing was ranked.
func (r *Result) Empty() bool { return len(r.Entries) == 0 }

// Truncated reports whether TopK dropped clusters.
func (r *Result) Truncated() bool { return len(r.Entries) < r.Total }

// Best returns the top entry, or false for an empty result.
func (r *Result) Best() (Entry, bool) {
	if r.Empty() {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// ValidateTopK accepts All or a positive cap.
func ValidateTopK(topK int) error {
	if topK == All || topK > 0 {
		return nil
	}
	return errors.InvalidParam("top_k must be -1 (all) or a positive count").WithDetailf("%d", topK)
}

// Rank sorts clusters by representative energy ascending, breaking ties by
// seed, rank within run and pose id, then keeps the first topK.  topK is
// required: All keeps everything and 0 is rejected.
func Rank(clusters []cluster.Cluster, topK int) (*Result, error) {
	if err := ValidateTopK(topK); err != nil {
		return nil, err
	}
	sorted := make([]cluster.Cluster, 0, len(clusters))
	for _, cl := range clusters {
		if cl.Size() == 0 {
			return nil, errors.InvalidParam("cannot rank an empty cluster")
		}
		sorted = append(sorted, cl)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return pose.Less(sorted[i].Representative(), sorted[j].Representative())
	})

	n := len(sorted)
	if topK != All && topK < n {
		n = topK
	}
	res := &Result{Entries: make([]Entry, n), Total: len(sorted), TopK: topK}
	for i := 0; i < n; i++ {
		res.Entries[i] = Entry{Rank: i + 1, Cluster: sorted[i]}
	}
	return res, nil
}

//Personal.AI order the ending
