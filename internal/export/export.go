// Package export produces PDF files from composed report documents.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/school-reports/internal/document"
	"github.com/rs/zerolog/log"
)

// Engine names.
const (
	EngineNative   = "native"
	EngineChromium = "chromium"
)

var (
	// ErrExportInProgress is returned when the report is already being exported.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrUnknownEngine is returned for an engine name that is not registered.
	ErrUnknownEngine = errors.New("unknown export engine")
)

// Engine renders a document to PDF bytes.
type Engine interface {
	Name() string
	Render(ctx context.Context, doc *document.Document, settings Settings) ([]byte, error)
}

// State is the export state of one report.
type State int

const (
	StateIdle State = iota
	StateExporting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExporting:
		return "exporting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Exporter runs engines and tracks a per-report state machine
// (idle -> exporting -> idle | failed). A report that is exporting cannot
// be exported again until the running export finishes.
type Exporter struct {
	engines       map[string]Engine
	defaultEngine string
	settings      Settings
	timeout       time.Duration

	mu     sync.Mutex
	states map[string]State
}

// NewExporter creates an exporter. The first engine is the default unless
// SetDefaultEngine is called.
func NewExporter(settings Settings, timeout time.Duration, engines ...Engine) *Exporter {
	e := &Exporter{
		engines:  make(map[string]Engine, len(engines)),
		settings: settings.Normalized(),
		timeout:  timeout,
		states:   make(map[string]State),
	}
	for _, engine := range engines {
		if engine == nil {
			continue
		}
		if e.defaultEngine == "" {
			e.defaultEngine = engine.Name()
		}
		e.engines[engine.Name()] = engine
	}
	return e
}

// SetDefaultEngine selects the engine used when Export gets an empty name.
func (e *Exporter) SetDefaultEngine(name string) error {
	if _, ok := e.engines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	e.defaultEngine = name
	return nil
}

// Engines returns the registered engine names, sorted.
func (e *Exporter) Engines() []string {
	names := make([]string, 0, len(e.engines))
	for name := range e.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Settings returns the normalized export settings.
func (e *Exporter) Settings() Settings {
	return e.settings
}

// State returns the export state of a report.
func (e *Exporter) State(reportID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[reportID]
}

func (e *Exporter) begin(reportID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[reportID] == StateExporting {
		return ErrExportInProgress
	}
	e.states[reportID] = StateExporting
	return nil
}

func (e *Exporter) finish(reportID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.states[reportID] = StateFailed
		return
	}
	delete(e.states, reportID)
}

// render runs engine and turns a panic into an error so the report never
// stays in the exporting state.
func (e *Exporter) render(ctx context.Context, engine Engine, doc *document.Document) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine panic: %v", p)
		}
	}()
	return engine.Render(ctx, doc, e.settings)
}

// Export renders doc with the named engine (empty selects the default).
func (e *Exporter) Export(ctx context.Context, reportID string, doc *document.Document, engineName string) ([]byte, error) {
	if engineName == "" {
		engineName = e.defaultEngine
	}
	engine, ok := e.engines[engineName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engineName)
	}

	if err := e.begin(reportID); err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := e.render(ctx, engine, doc)
	e.finish(reportID, err)
	if err != nil {
		log.Error().Err(err).Str("report_id", reportID).Str("engine", engineName).Msg("export failed")
		return nil, fmt.Errorf("export with %s: %w", engineName, err)
	}

	log.Info().
		Str("report_id", reportID).
		Str("engine", engineName).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("report exported")
	return data, nil
}
