package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kimhsiao/signindesk/backend/internal/models"
	"github.com/kimhsiao/signindesk/backend/internal/offline"
)

func TestRunPendingEmpty(t *testing.T) {
	store := offline.NewStore(filepath.Join(t.TempDir(), "pending.jsonl"))

	var out bytes.Buffer
	if err := runPending(&out, store); err != nil {
		t.Fatalf("runPending failed: %v", err)
	}
	if !strings.Contains(out.String(), "no pending sign-ins") {
		t.Errorf("Expected empty message, got %q", out.String())
	}
}

func TestRunPendingLists(t *testing.T) {
	store := offline.NewStore(filepath.Join(t.TempDir(), "pending.jsonl"))
	records := []models.SigninRecord{
		{ID: "a1", Name: "Alice", Event: "Kickoff"},
		{ID: "b2", Name: "Bob", Event: "Kickoff"},
	}
	for _, rec := range records {
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	var out bytes.Buffer
	if err := runPending(&out, store); err != nil {
		t.Fatalf("runPending failed: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Alice") || !strings.Contains(text, "Bob") {
		t.Errorf("Expected both records listed, got %q", text)
	}
	if !strings.Contains(text, "2 pending") {
		t.Errorf("Expected count line, got %q", text)
	}
}
