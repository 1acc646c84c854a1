package service

import (
	"math"

	"github.com/m-ahsan-nazer/cacophony-api/entities"
)

// MinimumPrecisionMeters is the privacy floor: principals without global
// write access never see locations finer than this, whatever they request.
const MinimumPrecisionMeters = 100

// meridionalCircumferenceMeters maps a precision in meters onto degrees.
const meridionalCircumferenceMeters = 40000000

// EffectivePrecision clamps a requested precision to the privacy floor for
// principals without global write access.
func EffectivePrecision(user *entities.User, requestedMeters float64) float64 {
	if requestedMeters <= 0 {
		return MinimumPrecisionMeters
	}
	if user != nil && user.HasGlobalWrite() {
		return requestedMeters
	}
	return math.Max(requestedMeters, MinimumPrecisionMeters)
}

// RedactLocation snaps coordinates to a grid of the given precision. The
// result sits at the cell center, offset half a cell from the truncated
// edge with the coordinate's sign, so redacted points are not all pushed
// toward one corner of the cell. The input is never mutated.
func RedactLocation(loc entities.Location, precisionMeters float64) entities.Location {
	return entities.Location{
		Latitude:  reduceCoordinate(loc.Latitude, precisionMeters),
		Longitude: reduceCoordinate(loc.Longitude, precisionMeters),
	}
}

func reduceCoordinate(v, precisionMeters float64) float64 {
	resolution := precisionMeters * 360 / meridionalCircumferenceMeters
	cell := math.Trunc(v/resolution) * resolution
	return cell + math.Copysign(resolution/2, v)
}

// MergeMetadata overlays updates onto existing, key by key. Keys absent from
// updates are preserved. The merge is shallow and returns a fresh map.
func MergeMetadata(existing, updates map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}
