package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestProcessor(t *testing.T, files map[string]string) *Processor {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	p, err := NewProcessor(dir)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if err := p.LoadAll(); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return p
}

func TestLoadAllReadsSupportedFiles(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"report.txt": "The quarterback favors quick slants on third down.",
		"notes.md":   "Outside zone runs dominate first down play calls.",
		"binary.bin": "ignored",
	})

	if got := p.Count(); got != 2 {
		t.Fatalf("loaded %d documents, want 2", got)
	}
}

func TestSearchRanksByTermOverlap(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"scouting.txt": "The quarterback throws deep on play action. " +
			"The running back rarely fumbles. " +
			"Deep play action throws come from the quarterback on second down.",
	})

	results := p.Search("quarterback play action second")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(results), results)
	}
	// The sentence matching every query term must rank first.
	if !strings.Contains(results[0], "second down") {
		t.Fatalf("best match = %q", results[0])
	}
}

func TestDocumentContextFormat(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"scouting.txt": "Blitz rate spikes in the red zone.",
	})

	ctx := p.DocumentContext("red zone blitz")
	if !strings.HasPrefix(ctx, "Based on our documents:\n") {
		t.Fatalf("context prefix missing: %q", ctx)
	}
	if !strings.Contains(ctx, "Blitz rate spikes in the red zone") {
		t.Fatalf("context missing sentence: %q", ctx)
	}

	if got := p.DocumentContext("zzzunmatchedzzz"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	if got := p.DocumentContext("   "); got != "" {
		t.Fatalf("expected empty context for blank query, got %q", got)
	}
}

func TestLoadAllCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "documents")

	p, err := NewProcessor(dir)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if err := p.LoadAll(); err != nil {
		t.Fatalf("LoadAll on empty dir: %v", err)
	}
	if p.Count() != 0 {
		t.Fatalf("expected empty knowledge base, got %d docs", p.Count())
	}
}
