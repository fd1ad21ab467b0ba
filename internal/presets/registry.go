// Package presets holds the risk and commission choice sets offered by the
// form, optionally loaded from a YAML file that is reloaded on change.
package presets

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"positionsizer/internal/logger"
	"positionsizer/internal/sizing"
)

//go:embed choices.schema.json
var choicesSchema string

const sourceBuiltin = "builtin"

// FileConfig mirrors the choices YAML file.
type FileConfig struct {
	Risk              []float64               `yaml:"risk" json:"risk,omitempty"`
	Commission        []sizing.CommissionTier `yaml:"commission" json:"commission,omitempty"`
	DefaultRisk       float64                 `yaml:"default_risk" json:"default_risk,omitempty"`
	DefaultCommission string                  `yaml:"default_commission" json:"default_commission,omitempty"`
}

// Options configures a Registry. An empty Path serves the built-in variant.
type Options struct {
	Path              string
	Variant           sizing.RiskVariant
	DefaultRisk       float64
	DefaultCommission string
	Watch             bool
}

// Snapshot is an immutable view of the active choices.
type Snapshot struct {
	Version  int64          `json:"version"`
	LoadedAt time.Time      `json:"loaded_at"`
	Source   string         `json:"source"`
	Choices  sizing.Choices `json:"choices"`
}

// ChangeListener runs after a successful reload.
type ChangeListener func(Snapshot)

type Registry struct {
	opts   Options
	schema *jsonschema.Schema

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry loads the initial snapshot and, when requested, watches the file.
func NewRegistry(opts Options) (*Registry, error) {
	opts.Path = strings.TrimSpace(opts.Path)
	r := &Registry{opts: opts}
	if opts.Path == "" {
		choices, err := r.finish(sizing.DefaultChoices(opts.Variant))
		if err != nil {
			return nil, err
		}
		r.snapshot = Snapshot{Version: 1, LoadedAt: time.Now(), Source: sourceBuiltin, Choices: choices}
		logger.Infof("[presets] using built-in %s choices (%d risk, %d commission)", variantName(opts.Variant), len(choices.Risk), len(choices.Commission))
		return r, nil
	}
	schema, err := compileSchema(choicesSchema)
	if err != nil {
		return nil, fmt.Errorf("compile choices schema failed: %w", err)
	}
	r.schema = schema
	if err := r.reload(); err != nil {
		return nil, err
	}
	if opts.Watch {
		if err := r.watch(); err != nil {
			return nil, fmt.Errorf("watch choices file failed: %w", err)
		}
	}
	return r, nil
}

// watch follows the file's directory so editors that save by rename are seen too.
func (r *Registry) watch() error {
	file, err := filepath.Abs(r.opts.Path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return err
	}
	r.watcher = w
	r.watchDone = make(chan struct{})
	go r.watchLoop(w, file)
	return nil
}

func (r *Registry) watchLoop(w *fsnotify.Watcher, file string) {
	defer close(r.watchDone)
	for {
		select {
		case evt, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != file || !(evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create)) {
				continue
			}
			if err := r.reload(); err != nil {
				logger.Errorf("[presets] reload failed, keeping version %d: %v", r.Snapshot().Version, err)
				continue
			}
			r.notifyListeners()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warnf("[presets] watcher error: %v", err)
		}
	}
}

// Close stops watching the choices file. It is safe to call more than once.
func (r *Registry) Close() error {
	if r == nil || r.watcher == nil {
		return nil
	}
	var err error
	r.closeOnce.Do(func() {
		err = r.watcher.Close()
		<-r.watchDone
	})
	return err
}

// Snapshot returns the current choice set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Choices is a shortcut for Snapshot().Choices.
func (r *Registry) Choices() sizing.Choices {
	return r.Snapshot().Choices
}

// OnChange registers fn for future reloads.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	choices, err := r.readChoicesFile(r.opts.Path)
	if err != nil {
		return err
	}
	choices, err = r.finish(choices)
	if err != nil {
		return fmt.Errorf("choices in %s: %w", filepath.Base(r.opts.Path), err)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Source:   r.opts.Path,
		Choices:  choices,
	}
	version := r.snapshot.Version
	r.mu.Unlock()
	logger.Infof("[presets] loaded v%d from %s (%d risk, %d commission)", version, filepath.Base(r.opts.Path), len(choices.Risk), len(choices.Commission))
	return nil
}

// finish fills configured defaults, then normalizes and validates.
func (r *Registry) finish(c sizing.Choices) (sizing.Choices, error) {
	if c.DefaultRisk == 0 {
		c.DefaultRisk = r.opts.DefaultRisk
	}
	if strings.TrimSpace(c.DefaultCommission) == "" {
		c.DefaultCommission = r.opts.DefaultCommission
	}
	if c.DefaultRisk == 0 {
		c.DefaultRisk = sizing.DefaultRiskPercent
	}
	if strings.TrimSpace(c.DefaultCommission) == "" {
		c.DefaultCommission = sizing.DefaultCommission
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return sizing.Choices{}, err
	}
	return c, nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("presets listener")
			cb(snap)
		}(fn)
	}
}

func (r *Registry) readChoicesFile(path string) (sizing.Choices, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sizing.Choices{}, fmt.Errorf("read choices config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return sizing.Choices{}, fmt.Errorf("parse choices config failed: %w", err)
	}
	if err := r.validateDocument(raw); err != nil {
		return sizing.Choices{}, fmt.Errorf("choices config rejected by schema: %w", err)
	}
	variant := r.opts.Variant
	choices := sizing.Choices{
		Risk:              cfg.Risk,
		Commission:        cfg.Commission,
		DefaultRisk:       cfg.DefaultRisk,
		DefaultCommission: cfg.DefaultCommission,
	}
	builtin := sizing.DefaultChoices(variant)
	if len(choices.Risk) == 0 {
		choices.Risk = builtin.Risk
	}
	if len(choices.Commission) == 0 {
		choices.Commission = builtin.Commission
	}
	return choices, nil
}

// validateDocument checks the generic YAML tree so required keys are seen
// before struct decoding zero-fills them.
func (r *Registry) validateDocument(raw []byte) error {
	if r.schema == nil {
		return nil
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(asJSON, &generic); err != nil {
		return err
	}
	return r.schema.Validate(generic)
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	dst.Choices = src.Choices.Clone()
	return dst
}

func variantName(v sizing.RiskVariant) string {
	if v == "" {
		return string(sizing.RiskVariantStandard)
	}
	return string(v)
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compileSchema(schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("choices.schema.json", strings.NewReader(schema)); err != nil {
		return nil, err
	}
	return compiler.Compile("choices.schema.json")
}
