package composer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pkuwise/pkuwise/internal/llm"
)

func TestCompose_SystemMessageFirst(t *testing.T) {
	ctx := Context{Documents: "- Source: s\n- Content: c", Profile: "Patient name: Ada"}

	msgs := Compose(ctx, nil, "How much phe is in an apple?")

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("expected system message first, got %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "- Source: s") {
		t.Errorf("system message missing documents block: %s", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "Patient name: Ada") {
		t.Errorf("system message missing profile block: %s", msgs[0].Content)
	}
}

func TestCompose_QueryLast(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "first question"},
		{Role: llm.RoleAssistant, Content: "first answer"},
	}

	msgs := Compose(Context{}, history, "follow-up")

	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser || last.Content != "follow-up" {
		t.Errorf("expected user query last, got %+v", last)
	}
}

func TestCompose_HistoryPreserved(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "q2"},
		{Role: llm.RoleAssistant, Content: "a2"},
	}

	msgs := Compose(Context{}, history, "q3")

	if len(msgs) != len(history)+2 {
		t.Fatalf("expected %d messages, got %d", len(history)+2, len(msgs))
	}
	for i, h := range history {
		if msgs[i+1] != h {
			t.Errorf("history message %d changed: want %+v, got %+v", i, h, msgs[i+1])
		}
	}
}

func TestCompose_DoesNotMutateHistory(t *testing.T) {
	history := make([]llm.Message, 0, 4)
	history = append(history, llm.Message{Role: llm.RoleUser, Content: "hello"})
	snapshot := append([]llm.Message(nil), history...)

	Compose(Context{}, history, "next")

	if !reflect.DeepEqual(history, snapshot) {
		t.Errorf("history mutated: %+v", history)
	}
}

func TestCompose_Deterministic(t *testing.T) {
	ctx := Context{Documents: "docs", Profile: "details"}
	history := []llm.Message{{Role: llm.RoleUser, Content: "q"}}

	first := Compose(ctx, history, "query")
	second := Compose(ctx, history, "query")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different sequences:\n%+v\n%+v", first, second)
	}
}

func TestCompose_GroundingInstructions(t *testing.T) {
	msgs := Compose(Context{}, nil, "q")
	sys := msgs[0].Content

	for _, want := range []string{
		"cite the source",
		"add a disclaimer",
		"personalize",
		"--- MEDICAL CONTEXT ---",
		"--- USER DETAILS ---",
	} {
		if !strings.Contains(sys, want) {
			t.Errorf("system message missing %q:\n%s", want, sys)
		}
	}
}
