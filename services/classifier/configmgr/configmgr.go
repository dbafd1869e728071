// Package configmgr loads named ConfigVariants (the hybrid pipeline's
// weights/thresholds), validates them, and exposes the currently-active
// one as an atomically-swapped snapshot so a single request never
// observes two variants' fields mixed together. The hot-reload watcher
// follows the fsnotify pattern used across the retrieved pack
// (cagent/codenerd/basegraph) rather than a poll loop, and the
// atomic-pointer-swap idiom avoids in-place nested-field mutation that
// a concurrent reader could observe half-applied.
package configmgr

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const weightSumEpsilon = 1e-6

// ConfigVariant is one named set of pipeline knobs. Exactly one
// variant is active at a time.
type ConfigVariant struct {
	Name                string  `json:"name"`
	KeywordWeight       float64 `json:"kw_weight"`
	EmbeddingWeight     float64 `json:"emb_weight"`
	PriorityThreshold   float64 `json:"priority_threshold"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	GapThreshold        float64 `json:"gap_threshold"`
	UseEmbedding        bool    `json:"use_embedding"`
	UseLLM              bool    `json:"use_llm"`
	LLMModel            string  `json:"llm_model"`
}

// Validate enforces kw_weight+emb_weight == 1.0 within epsilon and that
// every threshold lies in [0,1].
func (v ConfigVariant) Validate() error {
	sum := v.KeywordWeight + v.EmbeddingWeight
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("configmgr: variant %q: kw_weight+emb_weight=%v, want 1.0±%v", v.Name, sum, weightSumEpsilon)
	}
	for _, th := range []struct {
		name string
		val  float64
	}{
		{"priority_threshold", v.PriorityThreshold},
		{"confidence_threshold", v.ConfidenceThreshold},
		{"gap_threshold", v.GapThreshold},
	} {
		if th.val < 0 || th.val > 1 {
			return fmt.Errorf("configmgr: variant %q: %s=%v out of range [0,1]", v.Name, th.name, th.val)
		}
	}
	return nil
}

// fileFormat mirrors the on-disk rules JSON shape.
type fileFormat struct {
	ActiveVariant string `json:"active_variant"`
	Rules         struct {
		RuleSets map[string]ConfigVariant `json:"rule_sets"`
	} `json:"rules"`
}

// snapshot is the immutable, atomically-swapped state: every loaded
// variant plus which one is active.
type snapshot struct {
	active   string
	variants map[string]ConfigVariant
}

// Manager owns the hot-reloadable rule file and hands out snapshots.
type Manager struct {
	path        string
	versionsDir string
	log         zerolog.Logger

	current atomic.Pointer[snapshot]
	watcher *fsnotify.Watcher
}

// Load reads path once at startup, validating every variant; a variant
// that fails validation is rejected (not loaded), with a warning. The
// active variant named in the file must itself be valid or Load fails.
func Load(path string, versionsDir string, log zerolog.Logger) (*Manager, error) {
	m := &Manager{path: path, versionsDir: versionsDir, log: log}
	snap, err := loadSnapshot(path, log)
	if err != nil {
		return nil, err
	}
	m.current.Store(snap)
	return m, nil
}

func loadSnapshot(path string, log zerolog.Logger) (*snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configmgr: read %s: %w", path, err)
	}
	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("configmgr: parse %s: %w", path, err)
	}

	variants := make(map[string]ConfigVariant)
	for name, v := range ff.Rules.RuleSets {
		v.Name = name
		if err := v.Validate(); err != nil {
			log.Warn().Err(err).Msg("configmgr: rejecting invalid variant")
			continue
		}
		variants[name] = v
	}
	if _, ok := variants[ff.ActiveVariant]; !ok {
		return nil, fmt.Errorf("configmgr: active_variant %q is missing or invalid in %s", ff.ActiveVariant, path)
	}
	return &snapshot{active: ff.ActiveVariant, variants: variants}, nil
}

// Active returns a value-copy snapshot of the currently active variant.
// Callers read this once per request entry into the Decision Engine, so
// a mid-flight hot-swap never produces a request with mixed weights.
func (m *Manager) Active() ConfigVariant {
	snap := m.current.Load()
	return snap.variants[snap.active]
}

// SwitchVariant atomically flips the active pointer to an already-loaded
// variant, for A/B rollouts. Returns an error if the name is unknown.
func (m *Manager) SwitchVariant(name string) error {
	snap := m.current.Load()
	if _, ok := snap.variants[name]; !ok {
		return fmt.Errorf("configmgr: unknown variant %q", name)
	}
	next := &snapshot{active: name, variants: snap.variants}
	m.current.Store(next)
	return nil
}

// Watch starts an fsnotify watcher on the config file's directory and
// returns once it is running; events are handled on a goroutine that
// exits when stop is closed or the watcher's channels close. On a write
// or create event for the file, it writes a timestamped backup of the
// current snapshot to versionsDir, validates the new content, then
// atomically swaps the active pointer. Invalid updates are logged and
// ignored, leaving the previous snapshot in place.
func (m *Manager) Watch(stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configmgr: create watcher: %w", err)
	}
	m.watcher = w
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		w.Close()
		return fmt.Errorf("configmgr: watch dir: %w", err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				m.reload()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				m.log.Warn().Err(err).Msg("configmgr: watcher error")
			}
		}
	}()
	return nil
}

func (m *Manager) reload() {
	if err := m.backupCurrent(); err != nil {
		m.log.Warn().Err(err).Msg("configmgr: failed to write backup before reload, continuing anyway")
	}
	snap, err := loadSnapshot(m.path, m.log)
	if err != nil {
		m.log.Warn().Err(err).Msg("configmgr: rejecting config reload, keeping previous snapshot")
		return
	}
	m.current.Store(snap)
	m.log.Info().Str("active_variant", snap.active).Msg("configmgr: reloaded config")
}

func (m *Manager) backupCurrent() error {
	if m.versionsDir == "" {
		return nil
	}
	if err := os.MkdirAll(m.versionsDir, 0o755); err != nil {
		return err
	}
	// The file on disk already holds the new content, so the backup is
	// built from the snapshot still in use.
	snap := m.current.Load()
	var ff fileFormat
	ff.ActiveVariant = snap.active
	ff.Rules.RuleSets = snap.variants
	raw, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s.%d.bak", filepath.Base(m.path), time.Now().UnixNano())
	return os.WriteFile(filepath.Join(m.versionsDir, name), raw, 0o644)
}
