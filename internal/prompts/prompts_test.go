package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/codetype/internal/model"
)

func TestParseBlocksKeepsIndentation(t *testing.T) {
	input := "\nfunc a() {\n\treturn 1\n}\n\n%%\nx := 1  \n%%\n\n%%\n"
	prompts, err := ParseBlocks(strings.NewReader(input), "go")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	if prompts[0].Text != "func a() {\n\treturn 1\n}" {
		t.Fatalf("unexpected first prompt %q", prompts[0].Text)
	}
	if prompts[1].Text != "x := 1" {
		t.Fatalf("unexpected second prompt %q", prompts[1].Text)
	}
	if prompts[0].Category != "go" {
		t.Fatalf("expected category go, got %q", prompts[0].Category)
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("%%\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path, "js"); err == nil {
		t.Fatalf("expected error for empty prompt file")
	}
}

func TestDefaultsCoverCategories(t *testing.T) {
	prompts, err := Defaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	seen := map[string]int{}
	for _, p := range prompts {
		seen[p.Category]++
	}
	for _, c := range Categories {
		if seen[c] < 2 {
			t.Fatalf("expected at least 2 default prompts for %s, got %d", c, seen[c])
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	if got := NormalizeCategory(" Python "); got != "py" {
		t.Fatalf("expected py, got %q", got)
	}
	if got := NormalizeCategory("Rust"); got != "rust" {
		t.Fatalf("expected rust, got %q", got)
	}
}

func TestPickerEmpty(t *testing.T) {
	p := NewPickerWithSeed(1)
	if _, ok := p.Load(nil); ok {
		t.Fatalf("expected no prompt from empty set")
	}
	if _, ok := p.Next(); ok {
		t.Fatalf("expected no next prompt from empty set")
	}
}

func TestPickerSingleDoesNotLoop(t *testing.T) {
	p := NewPickerWithSeed(1)
	p.Load([]model.Prompt{{Text: "only"}})
	for i := 0; i < 3; i++ {
		got, ok := p.Next()
		if !ok || got.Text != "only" {
			t.Fatalf("expected the single prompt, got %+v", got)
		}
	}
}

func TestPickerNextDiffers(t *testing.T) {
	p := NewPickerWithSeed(7)
	p.Load([]model.Prompt{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	prev, _ := p.Current()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		next, ok := p.Next()
		if !ok {
			t.Fatalf("expected a prompt")
		}
		if next.Text == prev.Text {
			t.Fatalf("next prompt repeated %q", next.Text)
		}
		seen[next.Text] = true
		prev = next
	}
	if len(seen) != 3 {
		t.Fatalf("expected every prompt to be chosen, got %v", seen)
	}
}

func TestDocumentsToPrompts(t *testing.T) {
	docs := []promptDocument{{Language: "py", Text: "print(1)"}, {Text: "  "}, {Text: "x = 1"}}
	got := documentsToPrompts(docs, "py")
	if len(got) != 2 {
		t.Fatalf("expected blank prompt dropped, got %d", len(got))
	}
	if got[1].Category != "py" {
		t.Fatalf("expected fallback category, got %q", got[1].Category)
	}
}
