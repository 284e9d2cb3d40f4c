package chat

import (
	"strings"
	"testing"

	"persona-chat-api/internal/domain"
)

func TestBuildSystemPromptRealNameSentence(t *testing.T) {
	p := &domain.Persona{DisplayName: "Sage"}

	got := BuildSystemPrompt(p, "")
	if strings.Contains(got, "real name") {
		t.Fatalf("blank names must not produce a real-name sentence: %q", got)
	}

	p.FirstName = "  "
	p.LastName = ""
	if got := BuildSystemPrompt(p, ""); strings.Contains(got, "real name") {
		t.Fatalf("whitespace names must not produce a real-name sentence: %q", got)
	}

	p.FirstName = "Ada"
	got = BuildSystemPrompt(p, "")
	if !strings.Contains(got, "Your real name is Ada.") {
		t.Fatalf("missing real-name sentence: %q", got)
	}

	p.LastName = "Lovelace"
	got = BuildSystemPrompt(p, "")
	if !strings.Contains(got, "Your real name is Ada Lovelace.") {
		t.Fatalf("missing joined name: %q", got)
	}
}

func TestBuildSystemPromptTrainingSection(t *testing.T) {
	p := &domain.Persona{DisplayName: "Sage"}

	if got := BuildSystemPrompt(p, "   "); strings.Contains(got, "Background and Training") {
		t.Fatalf("blank training text must be omitted: %q", got)
	}

	got := BuildSystemPrompt(p, "Likes chess.")
	if !strings.Contains(got, "Background and Training: Likes chess.") {
		t.Fatalf("training text not inserted verbatim: %q", got)
	}
}

func TestBuildSystemPromptOrderAndGuidelines(t *testing.T) {
	p := &domain.Persona{DisplayName: "Sage", FirstName: "Ada"}
	got := BuildSystemPrompt(p, "history text")

	identity := strings.Index(got, "You are Sage")
	name := strings.Index(got, "Your real name is")
	training := strings.Index(got, "Background and Training")
	guide := strings.Index(got, "Response Guidelines")

	if !(identity < name && name < training && training < guide) {
		t.Fatalf("sections out of order: %q", got)
	}
	if identity != 0 {
		t.Fatalf("identity sentence must come first: %q", got)
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	p := &domain.Persona{DisplayName: "Sage", FirstName: "Ada", LastName: "L"}
	a := BuildSystemPrompt(p, "some training")
	b := BuildSystemPrompt(p, "some training")
	if a != b {
		t.Fatal("same inputs must give byte-identical output")
	}
}
