package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pkuwise/pkuwise/internal/llm"
	"github.com/pkuwise/pkuwise/internal/profile"
)

func TestSummarize(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]profile.Profile{
		"user-1": {
			ID:               "user-1",
			Name:             "Ada",
			DateOfBirth:      "2015-03-02",
			WeightKg:         31.5,
			PheToleranceMg:   300,
			ProteinGoalG:     12,
			CaloriesGoalKcal: 1800,
			Allergies:        []string{"soy", "nuts"},
			Country:          "Portugal",
		},
	}}
	completer := &fakeCompleter{reply: "Ada is a 11-year-old patient..."}
	s := NewSummarizer(profiles, completer, "gpt-3.5-turbo", 0.3)

	summary, err := s.Summarize(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "Ada is a 11-year-old patient..." {
		t.Errorf("unexpected summary: %q", summary)
	}

	if completer.got.Model != "gpt-3.5-turbo" {
		t.Errorf("wrong model: %q", completer.got.Model)
	}
	if completer.got.Temperature != 0.3 {
		t.Errorf("wrong temperature: %f", completer.got.Temperature)
	}
	if len(completer.got.Messages) != 1 || completer.got.Messages[0].Role != llm.RoleSystem {
		t.Fatalf("expected a single system message, got %+v", completer.got.Messages)
	}

	prompt := completer.got.Messages[0].Content
	for _, want := range []string{
		"- Name: Ada",
		"- Date of Birth: 2015-03-02",
		"- Weight: 31.5 kg",
		"- Phenylalanine (PHE) Tolerance: 300 mg/day",
		"- Daily Protein Goal: 12 g",
		"- Daily Calorie Goal: 1800 kcal",
		"- Allergies: soy, nuts",
		"- Country: Portugal",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSummarize_EmptyProfileFallbacks(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]profile.Profile{
		"user-1": {ID: "user-1"},
	}}
	completer := &fakeCompleter{reply: "summary"}
	s := NewSummarizer(profiles, completer, "gpt-3.5-turbo", 0.3)

	if _, err := s.Summarize(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := completer.got.Messages[0].Content
	for _, want := range []string{
		"- Name: N/A",
		"- Weight: N/A kg",
		"- Allergies: None",
		"- Country: N/A",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing fallback %q:\n%s", want, prompt)
		}
	}
}

func TestSummarize_ProfileFailure(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("store down")}
	completer := &fakeCompleter{}
	s := NewSummarizer(profiles, completer, "gpt-3.5-turbo", 0.3)

	if _, err := s.Summarize(context.Background(), "user-1"); err == nil {
		t.Fatal("expected an error")
	}
	if completer.calls != 0 {
		t.Error("completion ran despite profile failure")
	}
}
