package prompts

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

// DefaultCategory is selected when none is configured.
const DefaultCategory = "js"

// Categories lists the built-in prompt categories in display order.
var Categories = []string{"js", "py", "cpp", "html"}

// Source supplies prompts tagged with a category. An empty result is valid.
type Source interface {
	FetchPrompts(ctx context.Context, category string) ([]model.Prompt, error)
}

// NormalizeCategory lowercases and trims a category tag. Common aliases of
// the built-in categories are folded onto them.
func NormalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	switch category {
	case "javascript":
		return "js"
	case "python":
		return "py"
	case "c++":
		return "cpp"
	default:
		return category
	}
}

// IsKnownCategory reports whether category is one of the built-in ones.
func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Picker selects prompts uniformly at random from a loaded set.
type Picker struct {
	rnd     *rand.Rand
	prompts []model.Prompt
	current int
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker() *Picker {
	return NewPickerWithSeed(time.Now().UnixNano())
}

// NewPickerWithSeed returns a deterministic Picker.
func NewPickerWithSeed(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed)), current: -1}
}

// Load replaces the prompt set and picks a random starting prompt. It
// returns false when the set is empty.
func (p *Picker) Load(prompts []model.Prompt) (model.Prompt, bool) {
	p.prompts = append([]model.Prompt(nil), prompts...)
	if len(p.prompts) == 0 {
		p.current = -1
		return model.Prompt{}, false
	}
	p.current = p.rnd.Intn(len(p.prompts))
	return p.prompts[p.current], true
}

// Next selects a prompt different from the current one. With fewer than two
// prompts the current prompt is returned unchanged.
func (p *Picker) Next() (model.Prompt, bool) {
	if len(p.prompts) == 0 {
		return model.Prompt{}, false
	}
	if len(p.prompts) < 2 {
		p.current = 0
		return p.prompts[0], true
	}
	next := p.rnd.Intn(len(p.prompts))
	for next == p.current {
		next = p.rnd.Intn(len(p.prompts))
	}
	p.current = next
	return p.prompts[next], true
}

// Current returns the most recently selected prompt.
func (p *Picker) Current() (model.Prompt, bool) {
	if p.current < 0 || p.current >= len(p.prompts) {
		return model.Prompt{}, false
	}
	return p.prompts[p.current], true
}

// Len returns the number of loaded prompts.
func (p *Picker) Len() int {
	return len(p.prompts)
}
