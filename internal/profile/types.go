package profile

import "time"

// Profile holds the clinical attributes of a PKU patient. It is owned by the
// profile store and read fresh on every request; tolerance limits and
// allergies may change between conversation turns, so nothing here is cached.
type Profile struct {
	ID               string
	Name             string
	DateOfBirth      string // ISO 8601 date, empty when unknown
	WeightKg         float64
	PheToleranceMg   float64 // daily phenylalanine tolerance, mg/day
	ProteinGoalG     float64
	CaloriesGoalKcal float64
	Allergies        []string
	Country          string
	CreatedAt        time.Time
}

// HasPheTolerance reports whether a daily PHE tolerance has been set.
// A zero value means the field was never filled in, not a zero tolerance.
func (p Profile) HasPheTolerance() bool {
	return p.PheToleranceMg > 0
}
