package settings

// PickerOption is a catalog entry annotated for rendering.
type PickerOption struct {
	ModelOption
	Selected bool `json:"selected"`
}

// ToolSwitch is one drawer toggle.
type ToolSwitch struct {
	Name        Tool   `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// ReasoningView is the effort control. Visible is false for models outside
// the reasoning-capable family, even when the budget is non-zero.
type ReasoningView struct {
	Visible        bool   `json:"visible"`
	Effort         Effort `json:"effort"`
	ThinkingTokens int    `json:"thinking_tokens"`
}

// View is everything the drawer and picker render.
type View struct {
	SelectedModel string         `json:"selected_model"`
	PickerValue   string         `json:"picker_value"`
	CustomModel   string         `json:"custom_model,omitempty"`
	AllowCustom   bool           `json:"allow_custom"`
	ToolSettings  ToolSettings   `json:"tool_settings"`
	Switches      []ToolSwitch   `json:"switches"`
	Reasoning     ReasoningView  `json:"reasoning"`
	Models        []PickerOption `json:"models"`
}

// BuildView derives the render view for state.
func BuildView(state State, picker Picker) View {
	view := View{
		SelectedModel: state.SelectedModel,
		PickerValue:   picker.Value(state.SelectedModel),
		AllowCustom:   picker.AllowCustom,
		ToolSettings:  state.ToolSettings,
		Reasoning: ReasoningView{
			Visible:        IsReasoningCapable(state.SelectedModel),
			Effort:         EffortOf(state.ToolSettings.ThinkingTokens),
			ThinkingTokens: state.ToolSettings.ThinkingTokens,
		},
		Models: PickerOptions(picker.Catalog, state.SelectedModel),
	}
	if state.SelectedModel != "" && !picker.Catalog.Contains(state.SelectedModel) {
		view.CustomModel = state.SelectedModel
	}
	for _, tool := range Tools {
		view.Switches = append(view.Switches, ToolSwitch{
			Name:        tool,
			Label:       tool.Label(),
			Description: tool.Description(),
			Enabled:     state.ToolSettings.Enabled(tool),
		})
	}
	return view
}

// PickerOptions annotates catalog entries with the selection flag.
func PickerOptions(catalog *Catalog, selected string) []PickerOption {
	options := catalog.Options()
	out := make([]PickerOption, 0, len(options))
	for _, opt := range options {
		out = append(out, PickerOption{ModelOption: opt, Selected: opt.ID == selected})
	}
	return out
}
