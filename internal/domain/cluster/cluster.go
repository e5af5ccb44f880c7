// Package cluster groups docked poses by geometric similarity.
//
// Clustering is greedy and representative-relative: poses are visited in
// ranking order and each unclustered pose either founds a new cluster or was
// already absorbed by an earlier representative within the RMSD threshold.
// Two members of one cluster may therefore be further apart than the
// threshold from each other.
package cluster

import (
	"math"
	"sort"

	"github.com/turtacn/BlindDock/internal/domain/pose"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// DefaultThreshold is the RMSD cutoff in Å used when none is configured.
const DefaultThreshold = 2.0

// Cluster is a set of similar poses.  Members[0] is the representative and
// holds the lowest energy of the cluster.
type Cluster struct {
	Members []*pose.Pose
}

// Representative returns the lowest-energy member.
func (c Cluster) Representative() *pose.Pose { return c.Members[0] }

// Energy is the representative's energy.
func (c Cluster) Energy() float64 { return c.Members[0].Energy() }

// Size returns the member count, representative included.
func (c Cluster) Size() int { return len(c.Members) }

// Clusterer partitions poses with a fixed RMSD threshold.
type Clusterer struct {
	threshold float64
}

// New returns a Clusterer.  threshold must be finite and non-negative.
func New(threshold float64) (*Clusterer, error) {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, errors.InvalidParam("rmsd threshold must be a finite value >= 0").
			WithDetailf("%v", threshold)
	}
	return &Clusterer{threshold: threshold}, nil
}

// Threshold returns the RMSD cutoff.
func (c *Clusterer) Threshold() float64 { return c.threshold }

// Cluster partitions poses.  The input is not modified.  Clusters are
// returned in order of their representatives under pose.Less, which makes the
// result independent of input order.  All poses must share one atom count.
func (c *Clusterer) Cluster(poses []*pose.Pose) ([]Cluster, error) {
	if len(poses) == 0 {
		return nil, nil
	}
	ordered := make([]*pose.Pose, 0, len(poses))
	for i, p := range poses {
		if p == nil {
			return nil, errors.InvalidParam("nil pose").WithDetailf("index %d", i)
		}
		ordered = append(ordered, p)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return pose.Less(ordered[i], ordered[j]) })

	assigned := make([]bool, len(ordered))
	var clusters []Cluster
	for i, rep := range ordered {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cl := Cluster{Members: []*pose.Pose{rep}}
		for j := i + 1; j < len(ordered); j++ {
			if assigned[j] {
				continue
			}
			d, err := pose.RMSD(rep, ordered[j])
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeMalformedOutput, "poses are not comparable").
					WithDetailf("%s vs %s", rep.ID(), ordered[j].ID())
			}
			if d <= c.threshold {
				assigned[j] = true
				cl.Members = append(cl.Members, ordered[j])
			}
		}
		clusters = append(clusters, cl)
	}
	return clusters, nil
}

// Representatives returns the representative of every cluster, in order.
func Representatives(clusters []Cluster) []*pose.Pose {
	out := make([]*pose.Pose, len(clusters))
	for i, cl := range clusters {
		out[i] = cl.Representative()
	}
	return out
}

//Personal.AI order the ending
