package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictPickerRejectsUnknownModels(t *testing.T) {
	store := NewStore(State{SelectedModel: "openai/o4-mini", ToolSettings: Baseline()})
	picker := DispatchPicker(store, mustPreset(t, PresetSelector), false)

	err := picker.Select("my/custom-model")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.Equal(t, "openai/o4-mini", store.State().SelectedModel)

	require.NoError(t, picker.Select("anthropic/claude-3.7-sonnet"))
	assert.Equal(t, "anthropic/claude-3.7-sonnet", store.State().SelectedModel)
}

func TestPermissivePickerAcceptsFreeText(t *testing.T) {
	store := NewStore(State{ToolSettings: Baseline()})
	picker := DispatchPicker(store, DefaultCatalog(), true)

	require.NoError(t, picker.Select("  my/custom-model  "))
	assert.Equal(t, "my/custom-model", store.State().SelectedModel)
	assert.Equal(t, "my/custom-model", picker.Value("my/custom-model"))

	assert.Error(t, picker.Select("   "))
}

func TestStrictPickerShowsNothingForCustomModel(t *testing.T) {
	picker := Picker{Catalog: DefaultCatalog()}
	assert.Equal(t, "", picker.Value("my/custom-model"))
	assert.Equal(t, "openai/o3", picker.Value("openai/o3"))
}

func TestBuildView(t *testing.T) {
	state := State{SelectedModel: "openai/o4-mini", ToolSettings: Baseline()}
	state.ToolSettings.ThinkingTokens = 10000

	view := BuildView(state, Picker{Catalog: DefaultCatalog()})

	assert.Equal(t, "openai/o4-mini", view.PickerValue)
	assert.Empty(t, view.CustomModel)
	assert.False(t, view.Reasoning.Visible)
	assert.Equal(t, EffortHigh, view.Reasoning.Effort)
	assert.Equal(t, 10000, view.Reasoning.ThinkingTokens)
	require.Len(t, view.Switches, len(Tools))
	assert.Equal(t, ToolDeepResearch, view.Switches[0].Name)
	assert.Equal(t, "Deep Research", view.Switches[0].Label)

	selected := 0
	for _, opt := range view.Models {
		if opt.Selected {
			selected++
			assert.Equal(t, "openai/o4-mini", opt.ID)
		}
	}
	assert.Equal(t, 1, selected)
}

func TestBuildViewCustomModel(t *testing.T) {
	state := State{SelectedModel: "acme/claude-distill", ToolSettings: Baseline()}

	strict := BuildView(state, Picker{Catalog: DefaultCatalog()})
	assert.Equal(t, "", strict.PickerValue)
	assert.Equal(t, "acme/claude-distill", strict.CustomModel)
	assert.True(t, strict.Reasoning.Visible)
	assert.Equal(t, EffortStandard, strict.Reasoning.Effort)
	for _, opt := range strict.Models {
		assert.False(t, opt.Selected)
	}

	permissive := BuildView(state, Picker{Catalog: DefaultCatalog(), AllowCustom: true})
	assert.Equal(t, "acme/claude-distill", permissive.PickerValue)
}

func TestEffortProjection(t *testing.T) {
	assert.Equal(t, EffortStandard, EffortOf(0))
	assert.Equal(t, EffortHigh, EffortOf(1))
	assert.Equal(t, EffortHigh, EffortOf(HighEffortTokens))
	assert.Equal(t, HighEffortTokens, TokensFor(EffortHigh))
	assert.Equal(t, 0, TokensFor(EffortStandard))

	effort, err := ParseEffort(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, EffortHigh, effort)
	_, err = ParseEffort("medium")
	assert.Error(t, err)

	patch := EffortPatch(EffortHigh)
	require.NotNil(t, patch.ThinkingTokens)
	assert.Equal(t, 10000, *patch.ThinkingTokens)
}

func TestIsReasoningCapable(t *testing.T) {
	assert.True(t, IsReasoningCapable("anthropic/claude-sonnet-4"))
	assert.True(t, IsReasoningCapable("ANTHROPIC/CLAUDE-3.7-SONNET"))
	assert.False(t, IsReasoningCapable("openai/o4-mini"))
	assert.False(t, IsReasoningCapable(""))
}

func mustPreset(t *testing.T, name string) *Catalog {
	t.Helper()
	catalog, err := PresetCatalog(name)
	require.NoError(t, err)
	return catalog
}
