// Package session binds a settings store to one browser or terminal client
// and keeps live sessions in an expiring registry.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"runsettings/internal/logging"
	"runsettings/internal/settings"
)

// Config is shared by every session a registry creates.
type Config struct {
	Catalog     *settings.Catalog
	Defaults    *settings.DefaultTable
	AllowCustom bool

	// Persister receives every model selection in addition to the
	// session's pending cookie value. Optional.
	Persister settings.Persister

	Logger            logging.Logger
	DispatchObserver  settings.DispatchObserver
	ReconcileObserver settings.ReconcileObserver
}

func (c Config) catalog() *settings.Catalog {
	if c.Catalog == nil {
		return settings.DefaultCatalog()
	}
	return c.Catalog
}

// Session owns one settings store plus its reconciler and persistence hooks.
type Session struct {
	id        string
	createdAt time.Time
	store     *settings.Store
	picker    settings.Picker
	catalog   *settings.Catalog
	logger    logging.Logger

	// dispatchMu serializes external dispatches so each one returns only
	// after its listeners, the reconciler included, have run.
	dispatchMu sync.Mutex

	pendingMu    sync.Mutex
	pendingModel string
	hasPending   bool

	closeOnce sync.Once
	done      chan struct{}
	unsubs    []func()
}

// New builds a session seeded from persisted, falling back to the first
// catalog entry when persisted is blank.
func New(id, persisted string, cfg Config) *Session {
	catalog := cfg.catalog()
	logger := logging.WithSession(logging.OrNop(cfg.Logger), id)

	store := settings.NewStore(
		settings.State{ToolSettings: settings.Baseline()},
		settings.WithLogger(logger),
		settings.WithObserver(cfg.DispatchObserver),
	)
	s := &Session{
		id:        id,
		createdAt: time.Now(),
		store:     store,
		catalog:   catalog,
		picker:    settings.DispatchPicker(store, catalog, cfg.AllowCustom),
		logger:    logger,
		done:      make(chan struct{}),
	}

	reconciler := settings.NewReconciler(cfg.Defaults, logger)
	reconciler.Observer = cfg.ReconcileObserver
	s.unsubs = append(s.unsubs,
		reconciler.Attach(store),
		store.Subscribe(settings.PersistOnSelect(settings.PersisterFunc(s.recordPending), logger)),
	)
	if cfg.Persister != nil {
		s.unsubs = append(s.unsubs, store.Subscribe(settings.PersistOnSelect(cfg.Persister, logger)))
	}

	seed := strings.TrimSpace(persisted)
	if seed == "" {
		seed = catalog.First()
	}
	store.Dispatch(settings.SetSelectedModel(seed))
	logger.Debug("session created with model %s", seed)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was built.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Catalog returns the catalog the session's picker uses.
func (s *Session) Catalog() *settings.Catalog { return s.catalog }

// Picker returns the session's model picker.
func (s *Session) Picker() settings.Picker { return s.picker }

// State returns the current settings snapshot.
func (s *Session) State() settings.State { return s.store.State() }

// View derives the drawer view.
func (s *Session) View() settings.View {
	return settings.BuildView(s.store.State(), s.picker)
}

// Subscribe registers a listener on the underlying store.
func (s *Session) Subscribe(listener settings.Listener) func() {
	return s.store.Subscribe(listener)
}

// Dispatch validates and applies a raw action. A reset without a model
// falls back to the first catalog entry. Listeners must not call back into
// the session's dispatch methods.
func (s *Session) Dispatch(action settings.Action) (settings.State, error) {
	if err := action.Validate(); err != nil {
		return s.store.State(), err
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.dispatch(action)
}

func (s *Session) dispatch(action settings.Action) (settings.State, error) {
	switch action.Kind {
	case settings.ActionResetSettings:
		if strings.TrimSpace(action.Model) == "" {
			action.Model = s.catalog.First()
		}
	case settings.ActionSetSelectedModel:
		if err := s.picker.Select(action.Model); err != nil {
			return s.store.State(), err
		}
		return s.store.State(), nil
	}
	s.store.Dispatch(action)
	return s.store.State(), nil
}

// SelectModel routes id through the picker, so strict sessions reject ids
// outside the catalog with settings.ErrUnknownModel.
func (s *Session) SelectModel(id string) (settings.State, error) {
	return s.Dispatch(settings.SetSelectedModel(id))
}

// SetTools merges a partial tool update.
func (s *Session) SetTools(patch settings.ToolSettingsPatch) settings.State {
	state, _ := s.Dispatch(settings.SetToolSettings(patch))
	return state
}

// Toggle flips one drawer switch.
func (s *Session) Toggle(name string) (settings.State, error) {
	tool, err := settings.ParseTool(name)
	if err != nil {
		return s.store.State(), err
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.dispatch(settings.SetToolSettings(settings.TogglePatch(s.store.State().ToolSettings, tool)))
}

// SetEffort writes the thinking budget for effort. High effort is rejected
// with settings.ErrReasoningUnsupported unless the selected model reasons.
func (s *Session) SetEffort(effort settings.Effort) (settings.State, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	state := s.store.State()
	if err := settings.CheckEffort(state.SelectedModel, effort); err != nil {
		return state, err
	}
	return s.dispatch(settings.SetToolSettings(settings.EffortPatch(effort)))
}

// Reset restores the baseline and the first catalog model.
func (s *Session) Reset() settings.State {
	state, _ := s.Dispatch(settings.ResetSettings(s.catalog.First()))
	return state
}

func (s *Session) recordPending(id string) error {
	s.pendingMu.Lock()
	s.pendingModel = id
	s.hasPending = true
	s.pendingMu.Unlock()
	return nil
}

// TakePendingModel returns the last selected model not yet written to the
// client and clears it.
func (s *Session) TakePendingModel() (string, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if !s.hasPending {
		return "", false
	}
	id := s.pendingModel
	s.pendingModel = ""
	s.hasPending = false
	return id, true
}

// Done is closed when the session is released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close detaches the session's listeners. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, unsub := range s.unsubs {
			unsub()
		}
		close(s.done)
		s.logger.Debug("session released")
	})
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s, model=%s)", s.id, s.store.State().SelectedModel)
}
