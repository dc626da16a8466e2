package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkuwise/pkuwise/internal/llm"
	"github.com/pkuwise/pkuwise/internal/pipeline"
	"github.com/pkuwise/pkuwise/internal/profile"
)

const recipesTemplate = `You are an expert nutritionist and chef specializing in creating recipes for individuals with Phenylketonuria (PKU).
Your task is to generate 3 creative and delicious recipe ideas based on the user's specific dietary constraints and their request.

**USER'S DIETARY CONSTRAINTS:**
%s

**USER'S RECIPE REQUEST:**
"%s"

**OUTPUT REQUIREMENTS:**
- You MUST respond with a valid JSON object.
- The root of the object should be a key named "recipes".
- "recipes" should be an array of 3 recipe objects.
- Each recipe object must contain the following keys: "title", "description", "phe_mg_per_serving", "protein_g_per_serving", "calories_kcal_per_serving", "ingredients" (an array of strings), and "instructions" (an array of strings).
- Ensure the estimated nutritional values are plausible and compliant with the user's constraints.`

// defaultRequest is substituted when the user sends no recipe request.
const defaultRequest = "any type of meal"

// Recipe is one generated recipe idea.
type Recipe struct {
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	PheMgPerServing        float64  `json:"phe_mg_per_serving"`
	ProteinGPerServing     float64  `json:"protein_g_per_serving"`
	CaloriesKcalPerServing float64  `json:"calories_kcal_per_serving"`
	Ingredients            []string `json:"ingredients"`
	Instructions           []string `json:"instructions"`
}

// Result is the generated recipe set.
type Result struct {
	Recipes []Recipe `json:"recipes"`
}

// Generator produces PKU-safe recipe ideas constrained by the user's dietary
// profile. Single templated prompt in JSON mode, no retrieval.
type Generator struct {
	profiles  pipeline.ProfileStore
	completer pipeline.Completer
	model     string
}

// NewGenerator creates a Generator using the given completion model.
func NewGenerator(profiles pipeline.ProfileStore, completer pipeline.Completer, model string) *Generator {
	return &Generator{
		profiles:  profiles,
		completer: completer,
		model:     model,
	}
}

// Generate fetches the user's dietary constraints and asks the model for
// three compliant recipes. The model is forced into JSON mode and the reply
// is parsed before being returned, so callers never see malformed output.
func (g *Generator) Generate(ctx context.Context, userID, request string) (Result, error) {
	prof, err := g.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching profile: %w", err)
	}

	if request == "" {
		request = defaultRequest
	}

	prompt := fmt.Sprintf(recipesTemplate, renderConstraints(prof), request)
	reply, err := g.completer.Complete(ctx, llm.CompletionRequest{
		Model:    g.model,
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("completing recipes: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(reply), &result); err != nil {
		return Result{}, fmt.Errorf("parsing recipe response: %w", err)
	}
	return result, nil
}

func renderConstraints(p profile.Profile) string {
	lines := []string{
		"- Max Phenylalanine (PHE): " + numOrNA(p.PheToleranceMg) + " mg/day",
		"- Protein Goal: " + numOrNA(p.ProteinGoalG) + " g/day",
		"- Calorie Goal: " + numOrNA(p.CaloriesGoalKcal) + " kcal/day",
		"- Allergies: " + allergiesOrNone(p.Allergies),
	}
	return strings.Join(lines, "\n")
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
