package settings

import (
	"fmt"
	"sync"

	"runsettings/internal/logging"
)

// State is the configuration consumed by the picker, the drawer and the
// outbound tool_args feed.
type State struct {
	SelectedModel string       `json:"selected_model" yaml:"selected_model"`
	ToolSettings  ToolSettings `json:"tool_settings" yaml:"tool_settings"`
}

// ActionKind identifies one of the store's mutation paths.
type ActionKind string

const (
	ActionSetSelectedModel ActionKind = "set_selected_model"
	ActionSetToolSettings  ActionKind = "set_tool_settings"
	ActionResetSettings    ActionKind = "reset_settings"
)

// Action is the only way to change a Store.
type Action struct {
	Kind  ActionKind        `json:"type"`
	Model string            `json:"model,omitempty"`
	Patch ToolSettingsPatch `json:"tool_settings,omitempty"`
}

// SetSelectedModel replaces the selected model unconditionally. No catalog
// validation is performed.
func SetSelectedModel(id string) Action {
	return Action{Kind: ActionSetSelectedModel, Model: id}
}

// SetToolSettings shallow-merges patch into the tool settings.
func SetToolSettings(patch ToolSettingsPatch) Action {
	return Action{Kind: ActionSetToolSettings, Patch: patch}
}

// ResetSettings overwrites the tool settings with Baseline and selects model.
func ResetSettings(model string) Action {
	return Action{Kind: ActionResetSettings, Model: model}
}

// Validate rejects actions a Store would ignore.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionSetSelectedModel, ActionSetToolSettings, ActionResetSettings:
		return nil
	case "":
		return fmt.Errorf("action type is required")
	default:
		return fmt.Errorf("unknown action type %q", a.Kind)
	}
}

// Change describes one applied action.
type Change struct {
	Action Action
	Prev   State
	Next   State
}

// ModelSelected reports whether the action selected a model. Re-selecting
// the current model still counts.
func (c Change) ModelSelected() bool {
	return c.Action.Kind == ActionSetSelectedModel || c.Action.Kind == ActionResetSettings
}

// ToolSettingsChanged reports whether the tool settings differ after the action.
func (c Change) ToolSettingsChanged() bool {
	return c.Prev.ToolSettings != c.Next.ToolSettings
}

// Listener observes applied changes.
type Listener func(Change)

// Dispatcher is the mutation contract shared by Store and its wrappers.
type Dispatcher interface {
	Dispatch(Action) State
	State() State
}

// DispatchObserver receives one call per applied action.
type DispatchObserver interface {
	ObserveDispatch(kind ActionKind, toolSettingsChanged bool)
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(logger) }
}

// WithObserver registers a dispatch observer.
func WithObserver(observer DispatchObserver) Option {
	return func(s *Store) { s.observer = observer }
}

type subscription struct {
	id       int
	listener Listener
}

// Store holds {selected model, tool settings}. Reducers run under a lock.
// Listener notifications are delivered in dispatch order by a single
// draining goroutine; a Dispatch from inside a listener applies its reducer
// immediately and queues the notification behind the current one.
type Store struct {
	mu       sync.Mutex
	state    State
	subs     []subscription
	nextID   int
	queue    []Change
	draining bool

	logger   logging.Logger
	observer DispatchObserver
}

// NewStore creates a store with the given initial state.
func NewStore(initial State, opts ...Option) *Store {
	s := &Store{logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	initial.ToolSettings = Merge(initial.ToolSettings, ToolSettingsPatch{})
	s.state = initial
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers listener and returns a func that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, listener: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch applies action and returns the resulting state. Unknown action
// kinds are ignored. When another goroutine is already delivering changes,
// the new change joins its queue and Dispatch returns before listeners see
// it; callers that need listener effects to be visible on return must
// serialize their dispatches.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	prev := s.state
	next, ok := reduce(prev, action)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("ignoring action with unknown type %q", action.Kind)
		return prev
	}
	s.state = next
	s.queue = append(s.queue, Change{Action: action, Prev: prev, Next: next})
	if s.draining {
		s.mu.Unlock()
		return next
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
	return next
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		change := s.queue[0]
		s.queue = s.queue[1:]
		subs := make([]subscription, len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()

		if s.observer != nil {
			s.observer.ObserveDispatch(change.Action.Kind, change.ToolSettingsChanged())
		}
		for _, sub := range subs {
			s.notify(sub.listener, change)
		}
	}
}

func (s *Store) notify(listener Listener, change Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("settings listener panicked on %s: %v", change.Action.Kind, r)
		}
	}()
	listener(change)
}

func reduce(prev State, action Action) (State, bool) {
	next := prev
	switch action.Kind {
	case ActionSetSelectedModel:
		next.SelectedModel = action.Model
	case ActionSetToolSettings:
		next.ToolSettings = Merge(prev.ToolSettings, action.Patch)
	case ActionResetSettings:
		next = State{SelectedModel: action.Model, ToolSettings: Baseline()}
	default:
		return prev, false
	}
	return next, true
}
