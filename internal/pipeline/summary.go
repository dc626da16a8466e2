package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkuwise/pkuwise/internal/llm"
	"github.com/pkuwise/pkuwise/internal/profile"
)

const summaryTemplate = `You are a helpful medical assistant specializing in Phenylketonuria (PKU).
Your task is to generate a concise, easy-to-read, one-paragraph summary of the following PKU patient's profile.
The summary should be suitable for a quick overview by the patient or a caregiver.
Do not offer advice, just summarize the data provided.

--- PATIENT DATA ---
%s
--------------------`

// Summarizer produces a one-paragraph natural-language overview of a
// patient's profile. Single templated prompt, no retrieval.
type Summarizer struct {
	profiles    ProfileStore
	completer   Completer
	model       string
	temperature float32
}

// NewSummarizer creates a Summarizer using the given completion model.
func NewSummarizer(profiles ProfileStore, completer Completer, model string, temperature float32) *Summarizer {
	return &Summarizer{
		profiles:    profiles,
		completer:   completer,
		model:       model,
		temperature: temperature,
	}
}

// Summarize fetches the user's profile and asks the model for a one-paragraph
// summary of it.
func (s *Summarizer) Summarize(ctx context.Context, userID string) (string, error) {
	prof, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}

	prompt := fmt.Sprintf(summaryTemplate, renderPatientData(prof))
	summary, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Messages:    []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("completing summary: %w", err)
	}
	return summary, nil
}

// renderPatientData lists the full recognized profile field set with the
// usual fallbacks for unset values.
func renderPatientData(p profile.Profile) string {
	lines := []string{
		"- Name: " + orNA(p.Name),
		"- Date of Birth: " + orNA(p.DateOfBirth),
		"- Weight: " + numOrNA(p.WeightKg) + " kg",
		"- Phenylalanine (PHE) Tolerance: " + numOrNA(p.PheToleranceMg) + " mg/day",
		"- Daily Protein Goal: " + numOrNA(p.ProteinGoalG) + " g",
		"- Daily Calorie Goal: " + numOrNA(p.CaloriesGoalKcal) + " kcal",
		"- Allergies: " + allergiesOrNone(p.Allergies),
		"- Country: " + orNA(p.Country),
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func numOrNA(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func allergiesOrNone(allergies []string) string {
	if len(allergies) == 0 {
		return "None"
	}
	return strings.Join(allergies, ", ")
}
