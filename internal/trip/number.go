package trip

import "time"

// NewTripNumber generates a human-readable trip number: TRIP-YYYYMMDD-HHMMSS.
func NewTripNumber(at time.Time) string {
	return "TRIP-" + at.Format("20060102-150405")
}

// NewChainID generates the hour-bucket chain id used to group related trips:
// CHAIN-YYYYMMDD-HH. Trips started within the same hour share a chain.
func NewChainID(at time.Time) string {
	return "CHAIN-" + at.Format("20060102-15")
}
