package detect

import "strings"

// ActivityType is a normalized platform activity recognition label.
type ActivityType string

const (
	ActivityStill     ActivityType = "still"
	ActivityWalking   ActivityType = "walking"
	ActivityRunning   ActivityType = "running"
	ActivityInVehicle ActivityType = "in_vehicle"
	ActivityOnBicycle ActivityType = "on_bicycle"
	ActivityOnFoot    ActivityType = "on_foot"
	ActivityTilting   ActivityType = "tilting"
	ActivityUnknown   ActivityType = "unknown"
)

// activityAliases maps Android Activity Recognition and iOS Core Motion
// labels onto the normalized set.
var activityAliases = map[string]ActivityType{
	"in_vehicle": ActivityInVehicle,
	"automotive": ActivityInVehicle,
	"on_bicycle": ActivityOnBicycle,
	"cycling":    ActivityOnBicycle,
	"on_foot":    ActivityOnFoot,
	"running":    ActivityRunning,
	"walking":    ActivityWalking,
	"still":      ActivityStill,
	"stationary": ActivityStill,
	"tilting":    ActivityTilting,
	"unknown":    ActivityUnknown,
}

// NormalizeActivity maps a raw platform label to an ActivityType.
func NormalizeActivity(raw string) ActivityType {
	if raw == "" {
		return ActivityUnknown
	}
	if a, ok := activityAliases[strings.ToLower(raw)]; ok {
		return a
	}
	return ActivityUnknown
}

// activityMovementScore is how strongly each activity suggests movement.
var activityMovementScore = map[ActivityType]float64{
	ActivityInVehicle: 0.9,
	ActivityOnBicycle: 0.9,
	ActivityRunning:   0.95,
	ActivityWalking:   0.8,
	ActivityOnFoot:    0.7,
	ActivityStill:     0.1,
	ActivityTilting:   0.3,
	ActivityUnknown:   0.5,
}

// FuseMovement combines an activity label with GPS speed into a single moving
// signal. The activity score is weighted by its confidence; the remainder of
// the weight goes to a speed score normalized against walking pace (5 km/h).
func FuseMovement(activity ActivityType, confidence, speedKmh float64) (bool, float64) {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	activityScore := activityMovementScore[activity]
	if activityScore == 0 {
		activityScore = 0.5
	}

	speedScore := speedKmh / 5.0
	if speedScore > 1 {
		speedScore = 1
	}
	if speedScore < 0 {
		speedScore = 0
	}

	combined := activityScore*confidence + speedScore*(1-confidence)
	return combined > 0.5, combined
}
