package settings

import (
	"fmt"
	"strings"
)

// ToolSettings is the full set of per-session capability flags sent to the
// agent as tool_args.
type ToolSettings struct {
	DeepResearch    bool `json:"deep_research" yaml:"deep_research"`
	PDF             bool `json:"pdf" yaml:"pdf"`
	MediaGeneration bool `json:"media_generation" yaml:"media_generation"`
	AudioGeneration bool `json:"audio_generation" yaml:"audio_generation"`
	Browser         bool `json:"browser" yaml:"browser"`
	ForceTool       bool `json:"force_tool" yaml:"force_tool"`
	ThinkingTokens  int  `json:"thinking_tokens" yaml:"thinking_tokens"`
}

// ToolSettingsPatch is a partial override. Nil fields are absent and leave the
// corresponding setting untouched.
type ToolSettingsPatch struct {
	DeepResearch    *bool `json:"deep_research,omitempty" yaml:"deep_research,omitempty"`
	PDF             *bool `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	MediaGeneration *bool `json:"media_generation,omitempty" yaml:"media_generation,omitempty"`
	AudioGeneration *bool `json:"audio_generation,omitempty" yaml:"audio_generation,omitempty"`
	Browser         *bool `json:"browser,omitempty" yaml:"browser,omitempty"`
	ForceTool       *bool `json:"force_tool,omitempty" yaml:"force_tool,omitempty"`
	ThinkingTokens  *int  `json:"thinking_tokens,omitempty" yaml:"thinking_tokens,omitempty"`
}

// Bool returns a pointer to v for building patches.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v for building patches.
func Int(v int) *int { return &v }

// Baseline returns the canonical settings restored by a reset.
func Baseline() ToolSettings {
	return ToolSettings{
		DeepResearch:    false,
		PDF:             true,
		MediaGeneration: true,
		AudioGeneration: true,
		Browser:         true,
		ForceTool:       true,
		ThinkingTokens:  0,
	}
}

// IsEmpty reports whether the patch carries no fields.
func (p ToolSettingsPatch) IsEmpty() bool {
	return p == ToolSettingsPatch{}
}

// Merge shallow-merges patch into s. Present patch fields win; every other
// field of s is preserved. Negative thinking budgets are clamped to zero.
func Merge(s ToolSettings, patch ToolSettingsPatch) ToolSettings {
	out := s
	if patch.DeepResearch != nil {
		out.DeepResearch = *patch.DeepResearch
	}
	if patch.PDF != nil {
		out.PDF = *patch.PDF
	}
	if patch.MediaGeneration != nil {
		out.MediaGeneration = *patch.MediaGeneration
	}
	if patch.AudioGeneration != nil {
		out.AudioGeneration = *patch.AudioGeneration
	}
	if patch.Browser != nil {
		out.Browser = *patch.Browser
	}
	if patch.ForceTool != nil {
		out.ForceTool = *patch.ForceTool
	}
	if patch.ThinkingTokens != nil {
		out.ThinkingTokens = *patch.ThinkingTokens
	}
	if out.ThinkingTokens < 0 {
		out.ThinkingTokens = 0
	}
	return out
}

// PatchFrom converts full settings into a patch with every field present.
func PatchFrom(s ToolSettings) ToolSettingsPatch {
	return ToolSettingsPatch{
		DeepResearch:    Bool(s.DeepResearch),
		PDF:             Bool(s.PDF),
		MediaGeneration: Bool(s.MediaGeneration),
		AudioGeneration: Bool(s.AudioGeneration),
		Browser:         Bool(s.Browser),
		ForceTool:       Bool(s.ForceTool),
		ThinkingTokens:  Int(s.ThinkingTokens),
	}
}

// Tool names one boolean switch in the settings drawer.
type Tool string

const (
	ToolDeepResearch    Tool = "deep_research"
	ToolPDF             Tool = "pdf"
	ToolMediaGeneration Tool = "media_generation"
	ToolAudioGeneration Tool = "audio_generation"
	ToolBrowser         Tool = "browser"
	ToolForceTool       Tool = "force_tool"
)

// Tools lists the drawer switches in display order.
var Tools = []Tool{
	ToolDeepResearch,
	ToolPDF,
	ToolMediaGeneration,
	ToolAudioGeneration,
	ToolBrowser,
	ToolForceTool,
}

var toolLabels = map[Tool]string{
	ToolDeepResearch:    "Deep Research",
	ToolPDF:             "PDF Processing",
	ToolMediaGeneration: "Media Generation",
	ToolAudioGeneration: "Audio Generation",
	ToolBrowser:         "Browser",
	ToolForceTool:       "Force tools on long queries",
}

var toolDescriptions = map[Tool]string{
	ToolDeepResearch:    "Multi-step web research before answering",
	ToolPDF:             "Read and extract content from PDF files",
	ToolMediaGeneration: "Generate images and video",
	ToolAudioGeneration: "Generate speech and audio",
	ToolBrowser:         "Let the agent drive a headless browser",
	ToolForceTool:       "Require a tool call when the prompt is long",
}

// Label returns the drawer label for t.
func (t Tool) Label() string {
	if label, ok := toolLabels[t]; ok {
		return label
	}
	return string(t)
}

// Description returns the tooltip text for t.
func (t Tool) Description() string {
	return toolDescriptions[t]
}

// ParseTool resolves a tool name, accepting dashes in place of underscores.
func ParseTool(name string) (Tool, error) {
	normalized := Tool(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if _, ok := toolLabels[normalized]; ok {
		return normalized, nil
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

// Enabled reports the current value of the switch for t.
func (s ToolSettings) Enabled(t Tool) bool {
	switch t {
	case ToolDeepResearch:
		return s.DeepResearch
	case ToolPDF:
		return s.PDF
	case ToolMediaGeneration:
		return s.MediaGeneration
	case ToolAudioGeneration:
		return s.AudioGeneration
	case ToolBrowser:
		return s.Browser
	case ToolForceTool:
		return s.ForceTool
	default:
		return false
	}
}

// SetPatch builds a patch that sets only t to value.
func SetPatch(t Tool, value bool) ToolSettingsPatch {
	var patch ToolSettingsPatch
	switch t {
	case ToolDeepResearch:
		patch.DeepResearch = Bool(value)
	case ToolPDF:
		patch.PDF = Bool(value)
	case ToolMediaGeneration:
		patch.MediaGeneration = Bool(value)
	case ToolAudioGeneration:
		patch.AudioGeneration = Bool(value)
	case ToolBrowser:
		patch.Browser = Bool(value)
	case ToolForceTool:
		patch.ForceTool = Bool(value)
	}
	return patch
}

// TogglePatch builds a patch flipping t relative to s.
func TogglePatch(s ToolSettings, t Tool) ToolSettingsPatch {
	return SetPatch(t, !s.Enabled(t))
}
