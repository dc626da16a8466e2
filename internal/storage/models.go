package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DietLog is one day's logged intake for a user.
type DietLog struct {
	ID           string
	UserID       string
	LogDate      string // ISO 8601 date
	PheMg        float64
	ProteinG     float64
	CaloriesKcal float64
	CreatedAt    time.Time
}

// DietReport aggregates logged intake over a date range.
type DietReport struct {
	TotalDaysLogged  int     `json:"total_days_logged"`
	AvgPheMg         float64 `json:"avg_phe_mg"`
	AvgProteinG      float64 `json:"avg_protein_g"`
	AvgCaloriesKcal  float64 `json:"avg_calories_kcal"`
	DaysOverPheLimit int     `json:"days_over_phe_limit"`
}
