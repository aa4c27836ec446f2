package cluster

import "github.com/satfire/firewatch/internal/types"

// SelectRepresentative reduces a sub-cluster with at least one member to its
// alarm candidate: the detection with the highest fire radiative power.
// Comparison is strictly greater-than, so on ties the earliest-scanned
// maximal detection wins.
func SelectRepresentative(c types.Cluster) types.Alarm {
	rep := c.Detections[0]
	for _, d := range c.Detections[1:] {
		if d.Power > rep.Power {
			rep = d
		}
	}
	return types.Alarm{
		Representative:   rep,
		RelatedDetection: len(c.Detections) > 1,
	}
}
