package settings

import "runsettings/internal/logging"

// ReconcileOutcome records what the reconciler did for one model selection.
type ReconcileOutcome struct {
	Model   string
	Merged  bool // model defaults changed the settings
	Clamped bool // thinking budget was zeroed for a non-reasoning model
}

// ReconcileObserver receives every reconcile outcome.
type ReconcileObserver interface {
	ObserveReconcile(ReconcileOutcome)
}

// Reconciler keeps tool settings consistent with per-model defaults.
type Reconciler struct {
	Table    *DefaultTable
	Logger   logging.Logger
	Observer ReconcileObserver
}

// NewReconciler builds a reconciler over table.
func NewReconciler(table *DefaultTable, logger logging.Logger) *Reconciler {
	return &Reconciler{Table: table, Logger: logging.OrNop(logger)}
}

// Subscriber is a store that accepts listeners.
type Subscriber interface {
	Dispatcher
	Subscribe(Listener) func()
}

// Attach subscribes the reconciler to store and returns the unsubscribe func.
// Reset leaves the baseline untouched: it persists like a selection but is
// never merged with model defaults.
func (r *Reconciler) Attach(store Subscriber) func() {
	return store.Subscribe(func(change Change) {
		if change.ModelSelected() && change.Action.Kind != ActionResetSettings {
			r.Reconcile(store, change.Next.SelectedModel)
		}
	})
}

// Reconcile merges the table override for model into the current settings
// and applies the reasoning clamp. It works from the dispatcher's current
// state; when a newer selection has already replaced model it does nothing
// and leaves the work to that selection's notification.
func (r *Reconciler) Reconcile(d Dispatcher, model string) ReconcileOutcome {
	logger := logging.OrNop(r.Logger)
	outcome := ReconcileOutcome{Model: model}

	current := d.State()
	if current.SelectedModel != model {
		logger.Debug("skip reconcile for superseded model %s", model)
		return outcome
	}

	override := r.Table.Lookup(model)
	merged := Merge(current.ToolSettings, override)
	if merged != current.ToolSettings {
		current = d.Dispatch(SetToolSettings(PatchFrom(merged)))
		outcome.Merged = true
		logger.Debug("applied model defaults for %s", model)
	}

	if !IsReasoningCapable(model) && current.ToolSettings.ThinkingTokens > 0 {
		d.Dispatch(SetToolSettings(ToolSettingsPatch{ThinkingTokens: Int(0)}))
		outcome.Clamped = true
		logger.Debug("reset thinking budget for non-reasoning model %s", model)
	}

	if r.Observer != nil {
		r.Observer.ObserveReconcile(outcome)
	}
	return outcome
}
