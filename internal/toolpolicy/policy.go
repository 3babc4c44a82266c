// Package toolpolicy decides how the agent connection should constrain tool
// use for a prompt, given the session's tool settings.
package toolpolicy

import "runsettings/internal/settings"

const (
	DefaultLongPromptTokens   = 2000
	DefaultDeepResearchTokens = 50
)

// ToolChoice mirrors the chat-completions tool_choice values the agent uses.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

// Config holds the prompt-size thresholds.
type Config struct {
	LongPromptTokens   int `mapstructure:"long_prompt_tokens" yaml:"long_prompt_tokens"`
	DeepResearchTokens int `mapstructure:"deep_research_tokens" yaml:"deep_research_tokens"`
}

// Decision is the outcome for one prompt.
type Decision struct {
	ToolChoice        ToolChoice `json:"tool_choice"`
	ParallelToolCalls bool       `json:"parallel_tool_calls"`
	PromptTokens      int        `json:"prompt_tokens"`
	Reason            string     `json:"reason"`
}

// Policy applies the force-tool rules.
type Policy struct {
	config  Config
	counter TokenCounter
}

// New builds a policy. Zero thresholds take the defaults; a nil counter uses
// tiktoken.
func New(config Config, counter TokenCounter) *Policy {
	if config.LongPromptTokens <= 0 {
		config.LongPromptTokens = DefaultLongPromptTokens
	}
	if config.DeepResearchTokens <= 0 {
		config.DeepResearchTokens = DefaultDeepResearchTokens
	}
	if counter == nil {
		counter = NewTiktokenCounter()
	}
	return &Policy{config: config, counter: counter}
}

// Config returns the effective thresholds.
func (p *Policy) Config() Config { return p.config }

// Decide returns the tool choice for prompt. Forcing only happens when the
// force_tool switch is on: long prompts always force a tool call, and deep
// research forces one for anything beyond a trivial prompt. Deep research
// runs its steps sequentially, so parallel calls are disabled under it.
func (p *Policy) Decide(tools settings.ToolSettings, prompt string) Decision {
	tokens := p.counter.CountTokens(prompt)
	d := Decision{
		ToolChoice:        ToolChoiceAuto,
		ParallelToolCalls: !tools.DeepResearch,
		PromptTokens:      tokens,
	}
	switch {
	case !tools.ForceTool:
		d.Reason = "force_tool disabled"
	case tokens >= p.config.LongPromptTokens:
		d.ToolChoice = ToolChoiceRequired
		d.Reason = "long prompt"
	case tools.DeepResearch && tokens >= p.config.DeepResearchTokens:
		d.ToolChoice = ToolChoiceRequired
		d.Reason = "deep research"
	default:
		d.Reason = "short prompt"
	}
	return d
}
