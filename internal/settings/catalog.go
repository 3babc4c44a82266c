package settings

import (
	"fmt"
	"sort"
	"strings"
)

// ModelOption is one entry of a model picker.
type ModelOption struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
}

// Catalog is an ordered, immutable list of known model ids. It only answers
// membership questions; ids outside it are still valid selections.
type Catalog struct {
	options []ModelOption
	index   map[string]int
}

// NewCatalog builds a catalog preserving order. Blank ids are skipped, later
// duplicates are dropped and empty labels fall back to the id.
func NewCatalog(options ...ModelOption) *Catalog {
	c := &Catalog{index: make(map[string]int, len(options))}
	for _, opt := range options {
		opt.ID = strings.TrimSpace(opt.ID)
		if opt.ID == "" {
			continue
		}
		if _, dup := c.index[opt.ID]; dup {
			continue
		}
		if strings.TrimSpace(opt.Label) == "" {
			opt.Label = opt.ID
		}
		c.index[opt.ID] = len(c.options)
		c.options = append(c.options, opt)
	}
	return c
}

// CatalogFromIDs builds a catalog whose labels are the ids themselves.
func CatalogFromIDs(ids ...string) *Catalog {
	options := make([]ModelOption, 0, len(ids))
	for _, id := range ids {
		options = append(options, ModelOption{ID: id})
	}
	return NewCatalog(options...)
}

// Options returns a copy of the entries in order.
func (c *Catalog) Options() []ModelOption {
	if c == nil {
		return nil
	}
	out := make([]ModelOption, len(c.options))
	copy(out, c.options)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.options)
}

// Contains reports catalog membership of id.
func (c *Catalog) Contains(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[id]
	return ok
}

// First returns the id of the first entry, or "" for an empty catalog.
func (c *Catalog) First() string {
	if c == nil || len(c.options) == 0 {
		return ""
	}
	return c.options[0].ID
}

// Label returns the display label for id, falling back to id itself.
func (c *Catalog) Label(id string) string {
	if c != nil {
		if i, ok := c.index[id]; ok {
			return c.options[i].Label
		}
	}
	return id
}

// PickerValue is the value a strict picker should show for id: the id when
// it is a catalog member, otherwise "" (nothing selected).
func (c *Catalog) PickerValue(id string) string {
	if c.Contains(id) {
		return id
	}
	return ""
}

const (
	PresetDrawer   = "drawer"
	PresetSelector = "selector"
)

var drawerModels = []string{
	"anthropic/claude-sonnet-4",
	"google/gemini-2.5-flash-preview-05-20",
	"deepseek/deepseek-chat-v3-0324:free",
	"deepseek/deepseek-chat-v3-0324",
	"google/gemini-2.5-pro-preview",
	"deepseek/deepseek-r1-0528:free",
	"deepseek/deepseek-r1-0528",
	"openai/gpt-4.1",
	"openai/gpt-4.1-mini",
	"openai/gpt-4.1-nano",
	"openai/o4-mini",
	"openai/o4-mini-high",
	"openai/o3",
	"meta-llama/llama-4-maverick",
	"meta-llama/llama-4-maverick:free",
	"google/gemini-2.5-flash-lite-preview-06-17",
	"google/gemini-2.5-flash",
	"google/gemini-2.5-flash-preview-05-20:thinking",
	"x-ai/grok-3-mini-beta",
	"x-ai/grok-3-mini",
	"anthropic/claude-opus-4",
	"google/gemini-2.0-flash-001",
	"google/gemini-2.5-pro",
	"deepseek/deepseek-r1:free",
	"x-ai/grok-3-beta",
}

var selectorModels = []ModelOption{
	{ID: "google/gemini-2.5-flash-preview-05-20", Label: "Gemini 2.5 Flash"},
	{ID: "openai/o4-mini", Label: "OpenAI O4 Mini"},
	{ID: "anthropic/claude-3.7-sonnet", Label: "Claude 3.7 Sonnet"},
}

var presets = map[string]func() *Catalog{
	PresetDrawer:   func() *Catalog { return CatalogFromIDs(drawerModels...) },
	PresetSelector: func() *Catalog { return NewCatalog(selectorModels...) },
}

// DefaultCatalog returns the drawer catalog.
func DefaultCatalog() *Catalog {
	return presets[PresetDrawer]()
}

// PresetCatalog returns the named catalog preset.
func PresetCatalog(name string) (*Catalog, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = PresetDrawer
	}
	build, ok := presets[key]
	if !ok {
		return nil, fmt.Errorf("unknown catalog preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return build(), nil
}

// PresetNames lists the available preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
