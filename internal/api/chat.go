package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkuwise/pkuwise/internal/auth"
	"github.com/pkuwise/pkuwise/internal/llm"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []llm.Message `json:"history"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "query is required")
			return
		}
		for i, m := range req.History {
			if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
				httpError(w, http.StatusBadRequest, "history[%d] has invalid role %q", i, m.Role)
				return
			}
		}

		reply, err := deps.Assistant.Answer(r.Context(), auth.UserID(r.Context()), req.Query, req.History)
		if err != nil {
			slog.Error("chat pipeline failed", "error", err, "request_id", requestID(r.Context()))
			httpError(w, http.StatusInternalServerError, "Failed to generate a reply.")
			return
		}

		respondJSON(w, ChatResponse{Reply: reply})
	}
}

func handleRecipes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// The request body is optional; an empty or absent query means
		// "any type of meal".
		var req struct {
			Query string `json:"query"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
				return
			}
		}

		result, err := deps.Recipes.Generate(r.Context(), auth.UserID(r.Context()), req.Query)
		if err != nil {
			slog.Error("recipe generation failed", "error", err, "request_id", requestID(r.Context()))
			httpError(w, http.StatusInternalServerError, "Failed to generate recipes.")
			return
		}

		respondJSON(w, result)
	}
}

func handleProfileSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := deps.Summarizer.Summarize(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			slog.Error("profile summary failed", "error", err, "request_id", requestID(r.Context()))
			httpError(w, http.StatusInternalServerError, "Could not fetch user profile.")
			return
		}

		respondJSON(w, map[string]string{"summary": summary})
	}
}

// ReportRequest is the body of POST /report.
type ReportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func handleReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if !validDate(req.StartDate) || !validDate(req.EndDate) {
			httpError(w, http.StatusBadRequest, "start_date and end_date must be YYYY-MM-DD")
			return
		}

		rep, err := deps.Reports.Build(r.Context(), auth.UserID(r.Context()), req.StartDate, req.EndDate)
		if err != nil {
			slog.Error("report build failed", "error", err, "request_id", requestID(r.Context()))
			httpError(w, http.StatusInternalServerError, "Failed to generate report.")
			return
		}

		respondJSON(w, rep)
	}
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
