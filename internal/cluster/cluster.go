// Package cluster groups one granule's fire detections into per-fire
// clusters, bounds cluster extent, and selects alarm representatives.
package cluster

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/satfire/firewatch/internal/types"
)

// MergeRadiusKm is the distance below which two same-granule detections are
// considered part of the same fire.
const MergeRadiusKm = 0.8

// Group partitions detections into clusters with single-pass "star"
// grouping: the lowest-indexed remaining detection seeds a cluster and pulls
// in every remaining detection strictly closer than radiusKm to the seed.
// Membership is tested against the seed only, never between members, so a
// chain of close points spanning more than one radius hop splits across
// clusters. Clusters are returned in seed order; the input is not modified.
func Group(ds []types.Detection, radiusKm float64) []types.Cluster {
	return group(ds, radiusKm, -1)
}

// group runs the star pass. When firstSeed is a valid index it seeds the
// first cluster; later seeds revert to lowest-remaining-index order.
func group(ds []types.Detection, radiusKm float64, firstSeed int) []types.Cluster {
	remaining := make([]int, len(ds))
	for i := range ds {
		remaining[i] = i
	}

	var clusters []types.Cluster
	for len(remaining) > 0 {
		seedPos := 0
		if len(clusters) == 0 && firstSeed >= 0 {
			for p, idx := range remaining {
				if idx == firstSeed {
					seedPos = p
					break
				}
			}
		}
		seed := remaining[seedPos]
		remaining = append(remaining[:seedPos], remaining[seedPos+1:]...)

		members := []types.Detection{ds[seed]}
		var keep []int
		for _, j := range remaining {
			if distanceKm(ds[seed], ds[j]) < radiusKm {
				members = append(members, ds[j])
			} else {
				keep = append(keep, j)
			}
		}
		remaining = keep

		clusters = append(clusters, types.Cluster{
			ID:         seedID(ds[seed]),
			Detections: members,
		})
	}
	return clusters
}

// seedID derives the cluster identifier from the seed's coordinates scaled
// to fixed-point: two seeds of one pass are always at least the merge radius
// apart, so the id is unique within a granule.
func seedID(d types.Detection) string {
	return fmt.Sprintf("%d_%d", int64(d.Longitude*100000), int64(d.Latitude*100000))
}

func distanceKm(a, b types.Detection) float64 {
	return geo.DistanceHaversine(
		orb.Point{a.Longitude, a.Latitude},
		orb.Point{b.Longitude, b.Latitude}) / 1000.0
}
