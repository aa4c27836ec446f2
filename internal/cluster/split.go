package cluster

import "github.com/satfire/firewatch/internal/types"

// Split bounds a cluster's spatial extent. If the cluster's diameter (the
// maximum pairwise great-circle distance) reaches thresholdKm, the members
// are regrouped with a star pass using thresholdKm as the merge radius,
// seeded at the lower-indexed endpoint of the diameter pair. The returned
// flag reports whether a split happened; singleton and small-diameter
// clusters come back unchanged with split == false.
func Split(c types.Cluster, thresholdKm float64) (parts []types.Cluster, split bool) {
	if len(c.Detections) <= 1 {
		return []types.Cluster{c}, false
	}

	d, a, _ := diameter(c.Detections)
	if d < thresholdKm {
		return []types.Cluster{c}, false
	}

	return group(c.Detections, thresholdKm, a), true
}

// diameter returns the maximum pairwise distance and the indices of the
// first pair attaining it, scanning pairs in (i, j) order with i < j.
func diameter(ds []types.Detection) (km float64, a, b int) {
	for i := 0; i < len(ds); i++ {
		for j := i + 1; j < len(ds); j++ {
			if d := distanceKm(ds[i], ds[j]); d > km {
				km, a, b = d, i, j
			}
		}
	}
	return km, a, b
}
