package workspace

import (
	"path/filepath"
	"testing"

	"github.com/lucentsys/agentspace/internal/models"
)

func TestSaveLoadState(t *testing.T) {
	w := New(t.TempDir())
	state := &models.AgentState{Provider: "anthropic", Round: 3, SystemPrompt: "base"}
	if err := w.SaveState(state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	loaded, err := w.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.Provider != "anthropic" || loaded.Round != 3 {
		t.Fatalf("unexpected state: %+v", loaded)
	}
}

func TestSaveLoadContextEmpty(t *testing.T) {
	w := New(t.TempDir())
	msgs, err := w.LoadContext()
	if err != nil {
		t.Fatalf("LoadContext on missing file: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected nil for missing context.json, got %+v", msgs)
	}
}

func TestSaveLoadContextRoundTrip(t *testing.T) {
	w := New(t.TempDir())
	in := []models.Message{{Role: models.RoleUser, Content: "[test] hi"}}
	if err := w.SaveContext(in); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	out, err := w.LoadContext()
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if len(out) != 1 || out[0].Content != "[test] hi" {
		t.Fatalf("unexpected context: %+v", out)
	}
}

func TestHistoryRoundRoundTrip(t *testing.T) {
	w := New(t.TempDir())
	rec := models.HistoryRound{Round: 7, Provider: "anthropic"}
	if err := w.SaveHistoryRound(rec); err != nil {
		t.Fatalf("SaveHistoryRound: %v", err)
	}
	got, err := w.LoadHistoryRound(7)
	if err != nil {
		t.Fatalf("LoadHistoryRound: %v", err)
	}
	if got.Round != 7 {
		t.Fatalf("unexpected round record: %+v", got)
	}

	rounds, err := w.ListHistoryRounds()
	if err != nil {
		t.Fatalf("ListHistoryRounds: %v", err)
	}
	if len(rounds) != 1 || rounds[0] != 7 {
		t.Fatalf("unexpected rounds: %+v", rounds)
	}

	if err := w.WipeHistory(); err != nil {
		t.Fatalf("WipeHistory: %v", err)
	}
	rounds, err = w.ListHistoryRounds()
	if err != nil {
		t.Fatalf("ListHistoryRounds after wipe: %v", err)
	}
	if len(rounds) != 0 {
		t.Fatalf("expected empty after wipe, got %+v", rounds)
	}
}

func TestRepairSignal(t *testing.T) {
	w := New(t.TempDir())
	if w.HasRepairSignal() {
		t.Fatal("expected no signal initially")
	}
	if err := w.WriteRepairSignal(); err != nil {
		t.Fatalf("WriteRepairSignal: %v", err)
	}
	if !w.HasRepairSignal() {
		t.Fatal("expected signal present after write")
	}
	consumed, err := w.ConsumeRepairSignal()
	if err != nil {
		t.Fatalf("ConsumeRepairSignal: %v", err)
	}
	if !consumed {
		t.Fatal("expected consumed=true")
	}
	if w.HasRepairSignal() {
		t.Fatal("expected signal gone after consume")
	}
	consumed, err = w.ConsumeRepairSignal()
	if err != nil {
		t.Fatalf("ConsumeRepairSignal second call: %v", err)
	}
	if consumed {
		t.Fatal("expected consumed=false on second call")
	}
}

func TestAppendAndLastCrash(t *testing.T) {
	w := New(t.TempDir())
	if last, err := w.LastCrash(); err != nil || last != nil {
		t.Fatalf("expected nil, nil on empty crash.log, got %+v, %v", last, err)
	}
	if err := w.AppendCrash(models.CrashRecord{Source: "unknown", Message: "boom"}); err != nil {
		t.Fatalf("AppendCrash: %v", err)
	}
	if err := w.AppendCrash(models.CrashRecord{Source: "llm_call", Message: "retry exhausted"}); err != nil {
		t.Fatalf("AppendCrash: %v", err)
	}
	last, err := w.LastCrash()
	if err != nil {
		t.Fatalf("LastCrash: %v", err)
	}
	if last == nil || last.Source != "llm_call" {
		t.Fatalf("expected last crash to be llm_call entry, got %+v", last)
	}
}

func TestToolOutputPath(t *testing.T) {
	w := New(t.TempDir())
	got := w.ToolOutputPath("abcd1234")
	want := filepath.Join(w.Root, ".tool-output", "abcd1234.txt")
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}
