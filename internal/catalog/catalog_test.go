package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const validPlay = `{
	"name": "%s",
	"duration": 2000,
	"keyframes": [
		{"timestamp": 0, "players": {"c1": {"x": 100, "y": 42}}},
		{"timestamp": 2000, "players": {"c1": {"x": 150, "y": 42}}}
	]
}`

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSortsAndAssignsIDs(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b.json", `{"name": "Zone Entry", "duration": 1000, "keyframes": [{"timestamp": 0}, {"timestamp": 1000}]}`)
	write(t, dir, "a.json", `{"name": "Breakout", "duration": 1000, "keyframes": [{"timestamp": 0}, {"timestamp": 1000}]}`)
	write(t, dir, "notes.txt", "not a play")

	plays, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("plays = %d, want 2", len(plays))
	}
	if plays[0].Name != "Breakout" || plays[1].Name != "Zone Entry" {
		t.Fatalf("order = %q, %q", plays[0].Name, plays[1].Name)
	}
	for _, p := range plays {
		if p.ID == "" {
			t.Fatalf("play %q has no assigned ID", p.Name)
		}
	}
}

func TestLoadReportsBadFilesButKeepsGood(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "good.json", `{"name": "Good", "duration": 1000, "keyframes": [{"timestamp": 0}, {"timestamp": 1000}]}`)
	write(t, dir, "broken.json", `{"name": `)
	write(t, dir, "short.json", `{"name": "Short", "keyframes": [{"timestamp": 0}]}`)

	plays, err := Load(dir)
	if err == nil {
		t.Fatal("expected an aggregate error for the invalid templates")
	}
	if len(plays) != 1 || plays[0].Name != "Good" {
		t.Fatalf("valid plays = %v", plays)
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load("/nonexistent/catalog"); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}
