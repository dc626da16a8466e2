package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pkuwise/pkuwise/internal/pipeline"
	"github.com/pkuwise/pkuwise/internal/storage"
)

// LogStore aggregates logged intake. Implemented by storage.Store.
type LogStore interface {
	GetDietReport(ctx context.Context, userID, startDate, endDate string) (storage.DietReport, error)
}

// Report is the assembled diet report for a date range. Binary rendering
// (PDF layout) is left to the consuming app; this is the report data.
type Report struct {
	ReportFor string `json:"report_for"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	storage.DietReport
}

// Builder assembles diet reports from the profile store and the diet log.
type Builder struct {
	profiles pipeline.ProfileStore
	logs     LogStore
}

// NewBuilder creates a Builder from its two stores.
func NewBuilder(profiles pipeline.ProfileStore, logs LogStore) *Builder {
	return &Builder{profiles: profiles, logs: logs}
}

// Build aggregates the user's logged intake over [startDate, endDate]. The
// profile lookup (for the patient name) and the log aggregation are
// independent reads and run concurrently; either failing fails the report.
func (b *Builder) Build(ctx context.Context, userID, startDate, endDate string) (Report, error) {
	var name string
	var agg storage.DietReport

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prof, err := b.profiles.GetProfile(gCtx, userID)
		if err != nil {
			return fmt.Errorf("fetching profile: %w", err)
		}
		name = prof.Name
		return nil
	})
	g.Go(func() error {
		r, err := b.logs.GetDietReport(gCtx, userID, startDate, endDate)
		if err != nil {
			return fmt.Errorf("aggregating diet logs: %w", err)
		}
		agg = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{
		ReportFor:  name,
		StartDate:  startDate,
		EndDate:    endDate,
		DietReport: agg,
	}, nil
}
