package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkuwise/pkuwise/internal/composer"
	"github.com/pkuwise/pkuwise/internal/llm"
	"github.com/pkuwise/pkuwise/internal/profile"
	"github.com/pkuwise/pkuwise/internal/retrieval"
)

// ProfileStore fetches a user's clinical profile. Implemented by storage.Store.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
}

// DocumentRetriever finds corpus documents relevant to a query.
// Implemented by retrieval.Retriever.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Match, error)
}

// Completer runs a chat completion. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Assistant runs the retrieval-augmented answer pipeline for one user turn:
// profile fetch, query embedding + similarity retrieval, context assembly,
// prompt composition, completion. Every stage feeds the next, so the pipeline
// is strictly sequential per request; Assistant itself holds no request state.
type Assistant struct {
	profiles  ProfileStore
	retriever DocumentRetriever
	completer Completer
}

// NewAssistant wires the pipeline from its injected collaborators.
func NewAssistant(profiles ProfileStore, retriever DocumentRetriever, completer Completer) *Assistant {
	return &Assistant{
		profiles:  profiles,
		retriever: retriever,
		completer: completer,
	}
}

// Answer produces a grounded, personalized reply to query for the given user.
// history is the caller-supplied prior conversation, appended to but never
// mutated. The profile is fetched fresh each call; tolerances and allergies
// change between turns. A missing or unreachable profile fails the request
// before any completion call is made; an empty retrieval result does not fail
// the request, it produces an ungrounded answer carrying a disclaimer.
func (a *Assistant) Answer(ctx context.Context, userID, query string, history []llm.Message) (string, error) {
	prof, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}

	matches, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	pctx := composer.AssembleContext(matches, prof)
	messages := composer.Compose(pctx, history, query)

	reply, err := a.completer.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("completing chat: %w", err)
	}

	slog.Debug("answer pipeline complete",
		"user", userID,
		"matches", len(matches),
		"grounded", len(matches) > 0,
		"history_turns", len(history),
	)
	return reply, nil
}
