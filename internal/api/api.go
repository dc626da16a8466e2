package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkuwise/pkuwise/internal/auth"
	"github.com/pkuwise/pkuwise/internal/pipeline"
	"github.com/pkuwise/pkuwise/internal/recipes"
	"github.com/pkuwise/pkuwise/internal/report"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps bundles the handlers' collaborators. Everything is injected so tests
// can assemble the API around fake clients.
type Deps struct {
	Assistant  *pipeline.Assistant
	Summarizer *pipeline.Summarizer
	Recipes    *recipes.Generator
	Reports    *report.Builder
	Verifier   *auth.Verifier
}

// NewHandler returns the app-facing HTTP API. Health is open; everything
// else sits behind bearer authentication, so an unauthenticated request is
// rejected before any pipeline stage runs.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Verifier))
		r.Post("/chat", handleChat(deps))
		r.Post("/recipes", handleRecipes(deps))
		r.Post("/profile-summary", handleProfileSummary(deps))
		r.Post("/report", handleReport(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": fmt.Sprintf(format, args...)})
}
