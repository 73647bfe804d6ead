package trip

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Endpoint coordinates are never persisted raw: start and end are reduced to a
// ~5km grid cell label, which keeps origin/destination coarse enough to be
// privacy-preserving while still useful for regional statistics.
const regionGridDeg = 0.05

// RegionLabel maps a coordinate to its coarse grid cell label, e.g.
// "48.125N,11.575E". Points in the same cell share a label.
func RegionLabel(lat, lng float64) string {
	clat := snapToGrid(lat)
	clng := snapToGrid(lng)

	latHemi := "N"
	if clat < 0 {
		latHemi = "S"
	}
	lngHemi := "E"
	if clng < 0 {
		lngHemi = "W"
	}
	return fmt.Sprintf("%.3f%s,%.3f%s", math.Abs(clat), latHemi, math.Abs(clng), lngHemi)
}

// RegionCentroid parses a region label back into its cell centroid.
func RegionCentroid(label string) (lat, lng float64, ok bool) {
	parts := strings.Split(label, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, ok = parseRegionPart(parts[0], "N", "S")
	if !ok {
		return 0, 0, false
	}
	lng, ok = parseRegionPart(parts[1], "E", "W")
	if !ok {
		return 0, 0, false
	}
	return lat, lng, true
}

func parseRegionPart(part, positive, negative string) (float64, bool) {
	sign := 1.0
	switch {
	case strings.HasSuffix(part, positive):
		part = strings.TrimSuffix(part, positive)
	case strings.HasSuffix(part, negative):
		part = strings.TrimSuffix(part, negative)
		sign = -1
	default:
		return 0, false
	}
	v, err := strconv.ParseFloat(part, 64)
	if err != nil {
		return 0, false
	}
	return sign * v, true
}

func snapToGrid(v float64) float64 {
	return math.Floor(v/regionGridDeg)*regionGridDeg + regionGridDeg/2
}
