package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runsettings/internal/settings"
)

func testConfig() Config {
	return Config{
		Catalog:  settings.DefaultCatalog(),
		Defaults: settings.BuiltinDefaults(),
	}
}

func TestNewSeedsFromPersistedModel(t *testing.T) {
	s := New("s1", "openrouter/google/gemini-2.5-pro", testConfig())

	state := s.State()
	assert.Equal(t, "openrouter/google/gemini-2.5-pro", state.SelectedModel)
	assert.True(t, state.ToolSettings.DeepResearch, "reconciler should apply defaults for the seeded model")

	id, ok := s.TakePendingModel()
	assert.True(t, ok)
	assert.Equal(t, "openrouter/google/gemini-2.5-pro", id)
	_, ok = s.TakePendingModel()
	assert.False(t, ok)
}

func TestNewFallsBackToFirstCatalogEntry(t *testing.T) {
	s := New("s1", "  ", testConfig())

	assert.Equal(t, "anthropic/claude-sonnet-4", s.State().SelectedModel)
	assert.Equal(t, settings.Baseline(), s.State().ToolSettings)
}

func TestStrictSessionRejectsUnknownModel(t *testing.T) {
	s := New("s1", "", testConfig())

	_, err := s.SelectModel("my/custom")
	require.Error(t, err)
	assert.True(t, errors.Is(err, settings.ErrUnknownModel))
	assert.Equal(t, "anthropic/claude-sonnet-4", s.State().SelectedModel)
}

func TestPermissiveSessionAcceptsCustomModel(t *testing.T) {
	cfg := testConfig()
	cfg.AllowCustom = true
	s := New("s1", "", cfg)

	state, err := s.SelectModel("my/custom")
	require.NoError(t, err)
	assert.Equal(t, "my/custom", state.SelectedModel)
	assert.Equal(t, "my/custom", s.View().CustomModel)
}

func TestToggleEffortAndReset(t *testing.T) {
	s := New("s1", "", testConfig())

	state, err := s.Toggle("force_tool")
	require.NoError(t, err)
	assert.False(t, state.ToolSettings.ForceTool)

	_, err = s.Toggle("teleport")
	assert.Error(t, err)

	state, err = s.SetEffort(settings.EffortHigh)
	require.NoError(t, err)
	assert.Equal(t, settings.HighEffortTokens, state.ToolSettings.ThinkingTokens)
	assert.True(t, s.View().Reasoning.Visible)

	_, err = s.SelectModel("openai/o4-mini")
	require.NoError(t, err)
	assert.Equal(t, 0, s.State().ToolSettings.ThinkingTokens)
	assert.False(t, s.View().Reasoning.Visible)

	state = s.Reset()
	assert.Equal(t, settings.Baseline(), state.ToolSettings)
	assert.Equal(t, "anthropic/claude-sonnet-4", state.SelectedModel)
}

func TestResetIgnoresFirstModelDefaults(t *testing.T) {
	s := New("s1", "", Config{
		Catalog:  settings.CatalogFromIDs("google/gemini-2.5-pro", "anthropic/claude-sonnet-4"),
		Defaults: settings.BuiltinDefaults(),
	})
	require.True(t, s.State().ToolSettings.DeepResearch, "seeding still applies model defaults")

	_, err := s.SelectModel("anthropic/claude-sonnet-4")
	require.NoError(t, err)

	state := s.Reset()
	assert.Equal(t, "google/gemini-2.5-pro", state.SelectedModel)
	assert.Equal(t, settings.Baseline(), state.ToolSettings)

	id, ok := s.TakePendingModel()
	assert.True(t, ok, "reset is still persisted")
	assert.Equal(t, "google/gemini-2.5-pro", id)
}

func TestHighEffortNeedsReasoningModel(t *testing.T) {
	s := New("s1", "openai/o4-mini", testConfig())

	state, err := s.SetEffort(settings.EffortHigh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, settings.ErrReasoningUnsupported))
	assert.Equal(t, 0, state.ToolSettings.ThinkingTokens)
	assert.Equal(t, 0, s.State().ToolSettings.ThinkingTokens)

	_, err = s.SetEffort(settings.EffortStandard)
	assert.NoError(t, err)
}

func TestConcurrentDispatchesReturnReconciledState(t *testing.T) {
	s := New("s1", "", testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Toggle("browser")
				_, _ = s.SetEffort(settings.EffortHigh)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				state, err := s.SelectModel("openai/o4-mini")
				assert.NoError(t, err)
				assert.Equal(t, 0, state.ToolSettings.ThinkingTokens, "clamp runs before SelectModel returns")

				state, err = s.SelectModel("google/gemini-2.5-pro")
				assert.NoError(t, err)
				assert.True(t, state.ToolSettings.DeepResearch, "defaults merge before SelectModel returns")
				_, _ = s.SelectModel("anthropic/claude-sonnet-4")
			}
		}()
	}
	wg.Wait()
}

func TestDispatchRawActions(t *testing.T) {
	s := New("s1", "", testConfig())

	_, err := s.Dispatch(settings.Action{Kind: "bogus"})
	assert.Error(t, err)

	s.SetTools(settings.ToolSettingsPatch{Browser: settings.Bool(false)})
	state, err := s.Dispatch(settings.Action{Kind: settings.ActionResetSettings})
	require.NoError(t, err)
	assert.Equal(t, settings.Baseline(), state.ToolSettings)
	assert.Equal(t, s.Catalog().First(), state.SelectedModel)
}

func TestConfiguredPersisterReceivesSelections(t *testing.T) {
	var persisted []string
	cfg := testConfig()
	cfg.Persister = settings.PersisterFunc(func(id string) error {
		persisted = append(persisted, id)
		return nil
	})
	s := New("s1", "openai/o3", cfg)

	_, err := s.SelectModel("openai/o4-mini")
	require.NoError(t, err)

	assert.Equal(t, []string{"openai/o3", "openai/o4-mini"}, persisted)
}

func TestCloseDetachesListeners(t *testing.T) {
	s := New("s1", "", testConfig())
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatalf("expected done channel to be closed")
	}

	_, _ = s.SelectModel("openai/o3")
	_, ok := s.TakePendingModel()
	// The seed selection is still pending; the post-close selection is not recorded.
	assert.True(t, ok)
	_, err := s.SelectModel("google/gemini-2.5-pro")
	require.NoError(t, err)
	assert.False(t, s.State().ToolSettings.DeepResearch)
}
