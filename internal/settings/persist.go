package settings

import "runsettings/internal/logging"

// Persister stores the selected model id. Writes are fire-and-forget.
type Persister interface {
	PersistModel(id string) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(id string) error

func (f PersisterFunc) PersistModel(id string) error { return f(id) }

// PersistOnSelect returns a listener that persists every model selection.
// Empty ids are not written; failures are logged and dropped.
func PersistOnSelect(p Persister, logger logging.Logger) Listener {
	logger = logging.OrNop(logger)
	return func(change Change) {
		if p == nil || !change.ModelSelected() {
			return
		}
		id := change.Next.SelectedModel
		if id == "" {
			return
		}
		if err := p.PersistModel(id); err != nil {
			logger.Warn("persist selected model %s: %v", id, err)
		}
	}
}
