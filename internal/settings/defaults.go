package settings

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTable maps model ids to the tool overrides applied when that model
// is selected.
type DefaultTable struct {
	entries map[string]ToolSettingsPatch
}

// NewDefaultTable copies entries into a new table.
func NewDefaultTable(entries map[string]ToolSettingsPatch) *DefaultTable {
	t := &DefaultTable{entries: make(map[string]ToolSettingsPatch, len(entries))}
	for id, patch := range entries {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		t.entries[id] = patch
	}
	return t
}

var routerPrefixes = []string{"openrouter/", "or:"}

func canonicalModelID(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range routerPrefixes {
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			return id[len(prefix):]
		}
	}
	return id
}

// Lookup returns the override for id. An exact key wins; otherwise router
// prefixes such as "openrouter/" are ignored on both sides. Unknown ids yield
// the empty patch.
func (t *DefaultTable) Lookup(id string) ToolSettingsPatch {
	if t == nil {
		return ToolSettingsPatch{}
	}
	if patch, ok := t.entries[id]; ok {
		return patch
	}
	want := canonicalModelID(id)
	if want == "" {
		return ToolSettingsPatch{}
	}
	// Iterate sorted keys so ambiguous tables resolve the same way every time.
	for _, key := range t.Models() {
		if canonicalModelID(key) == want {
			return t.entries[key]
		}
	}
	return ToolSettingsPatch{}
}

// Models returns the table keys, sorted.
func (t *DefaultTable) Models() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.entries))
	for id := range t.entries {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (t *DefaultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the raw table.
func (t *DefaultTable) Entries() map[string]ToolSettingsPatch {
	out := make(map[string]ToolSettingsPatch, t.Len())
	if t == nil {
		return out
	}
	for id, patch := range t.entries {
		out[id] = patch
	}
	return out
}

// BuiltinDefaults returns the table shipped with the agent front-end.
func BuiltinDefaults() *DefaultTable {
	fullToolset := ToolSettingsPatch{
		DeepResearch:    Bool(false),
		PDF:             Bool(true),
		MediaGeneration: Bool(true),
		AudioGeneration: Bool(true),
		Browser:         Bool(true),
	}
	research := ToolSettingsPatch{DeepResearch: Bool(true)}
	return NewDefaultTable(map[string]ToolSettingsPatch{
		"anthropic/claude-sonnet-4":              fullToolset,
		"anthropic/claude-opus-4":                fullToolset,
		"openrouter/google/gemini-2.5-flash-001": research,
		"openrouter/google/gemini-2.5-pro":       research,
		"openrouter/openai/gpt-4.1-mini":         research,
		"openrouter/openai/gpt-4.1-nano":         research,
	})
}

// LoadDefaultTable decodes a YAML mapping of model id to partial tool
// settings, e.g.
//
//	openrouter/google/gemini-2.5-pro:
//	  deep_research: true
func LoadDefaultTable(r io.Reader) (*DefaultTable, error) {
	entries := map[string]ToolSettingsPatch{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		if err == io.EOF {
			return NewDefaultTable(nil), nil
		}
		return nil, fmt.Errorf("decode model defaults: %w", err)
	}
	return NewDefaultTable(entries), nil
}

// LoadDefaultTableFile reads a YAML default table from path.
func LoadDefaultTableFile(path string) (*DefaultTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model defaults: %w", err)
	}
	defer f.Close()
	return LoadDefaultTable(f)
}

// MarshalYAML renders the table in the same shape LoadDefaultTable reads.
func (t *DefaultTable) MarshalYAML() (any, error) {
	return t.Entries(), nil
}
