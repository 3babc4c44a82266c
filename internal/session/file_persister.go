package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"runsettings/internal/jsonx"
)

const (
	stateFileVersion = 1
	stateFileName    = "selected_model.json"
	stateFileEnvName = "RUNSETTINGS_STATE_PATH"
	defaultStateDir  = ".runsettings"
)

type stateFileDoc struct {
	Version       int       `json:"version"`
	SelectedModel string    `json:"selected_model"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResolveStatePath returns where terminal front-ends persist the selected
// model: RUNSETTINGS_STATE_PATH when set, otherwise ~/.runsettings.
func ResolveStatePath(lookupEnv func(string) (string, bool), homeDir func() (string, error)) string {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}
	if value, ok := lookupEnv(stateFileEnvName); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	home, err := homeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(defaultStateDir, stateFileName)
	}
	return filepath.Join(home, defaultStateDir, stateFileName)
}

// FilePersister stores the selected model id in a small JSON document. It is
// the terminal counterpart of the selected_model cookie.
type FilePersister struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: strings.TrimSpace(path), now: time.Now}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string { return p.path }

// PersistModel implements settings.Persister.
func (p *FilePersister) PersistModel(id string) error {
	return p.Save(context.Background(), id)
}

// Save writes id atomically via a temp file and rename.
func (p *FilePersister) Save(ctx context.Context, id string) error {
	if p == nil || p.path == "" {
		return fmt.Errorf("state file not configured")
	}
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("model id required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	doc := stateFileDoc{Version: stateFileVersion, SelectedModel: id, UpdatedAt: p.now().UTC()}
	data, err := jsonx.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("ensure state directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state temp: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit state file: %w", err)
	}
	return nil
}

// Load returns the persisted model id. A missing, empty or malformed file
// yields "" with a nil error so callers fall back to the catalog default;
// only I/O failures are reported.
func (p *FilePersister) Load(ctx context.Context) (string, error) {
	if p == nil || p.path == "" {
		return "", nil
	}
	if ctx != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read state file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	var doc stateFileDoc
	if err := jsonx.Unmarshal(data, &doc); err != nil {
		return "", nil
	}
	if doc.Version != 0 && doc.Version != stateFileVersion {
		return "", nil
	}
	return strings.TrimSpace(doc.SelectedModel), nil
}
