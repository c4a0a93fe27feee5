// Package view holds the per-session page state: the input buffer, the
// ticker set, the phase and the last report. Every user action goes through
// a Machine so the gating rules live in one place.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/report"
	"github.com/bobmcallan/stock-predictor/internal/tickers"
)

// Phase is the page's current state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseReportReady Phase = "report_ready"
)

// Effect is applied by the page once when a phase is entered.
type Effect string

const (
	EffectFocusInput     Effect = "focus_input"
	EffectShowLoading    Effect = "show_loading"
	EffectScrollToReport Effect = "scroll_to_report"
)

// FailureKind classifies a failed generation.
type FailureKind string

const (
	FailureDataFetch        FailureKind = "data_fetch_failed"
	FailureReportGeneration FailureKind = "report_generation_failed"
)

const failureMessage = "No content available right now. Please try again later."

// Failure is shown after a generation that produced no report.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

var (
	ErrBusy               = errors.New("a report is being generated")
	ErrInputHidden        = errors.New("clear the report before adding tickers")
	ErrGenerateNotAllowed = errors.New("generate is not available in the current state")
)

// Generator produces a report for a ticker list.
type Generator interface {
	Generate(ctx context.Context, tickers []string) (string, error)
}

// Snapshot is an immutable copy of the state, including the derived gates.
type Snapshot struct {
	Input       string   `json:"input"`
	Tickers     []string `json:"tickers"`
	Phase       Phase    `json:"phase"`
	Report      string   `json:"report"`
	Failure     *Failure `json:"failure,omitempty"`
	InputShown  bool     `json:"input_shown"`
	CanGenerate bool     `json:"can_generate"`
	Effect      Effect   `json:"effect"`
}

// Options tune a Machine.
type Options struct {
	// SurfaceErrors records a Failure after a failed generation.
	SurfaceErrors bool
}

// Machine is safe for concurrent use. The lock is never held while a
// report is being generated.
type Machine struct {
	mu      sync.Mutex
	input   string
	tickers *tickers.Set
	phase   Phase
	report  string
	failure *Failure
	epoch   uint64
	surface bool
	logger  *common.Logger
}

// New returns a Machine in the Idle phase with no tickers.
func New(opts Options, logger *common.Logger) *Machine {
	return &Machine{
		tickers: tickers.New(),
		phase:   PhaseIdle,
		surface: opts.SurfaceErrors,
		logger:  logger,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() Snapshot {
	s := Snapshot{
		Input:       m.input,
		Tickers:     m.tickers.Symbols(),
		Phase:       m.phase,
		Report:      m.report,
		InputShown:  m.inputShown(),
		CanGenerate: m.canGenerate(),
		Effect:      effectFor(m.phase),
	}
	if m.failure != nil {
		f := *m.failure
		s.Failure = &f
	}
	return s
}

func effectFor(p Phase) Effect {
	switch p {
	case PhaseLoading:
		return EffectShowLoading
	case PhaseReportReady:
		return EffectScrollToReport
	default:
		return EffectFocusInput
	}
}

func (m *Machine) busy() bool {
	return m.phase == PhaseLoading || m.phase == PhaseReportReady
}

func (m *Machine) inputShown() bool {
	return m.tickers.Len() < tickers.MaxTickers && !m.busy()
}

func (m *Machine) canGenerate() bool {
	return m.tickers.Len() > 0 && !m.busy()
}

// SetInput replaces the input buffer.
func (m *Machine) SetInput(value string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input = value
	return m.snapshot()
}

// SubmitInput adds the input buffer as a ticker and clears the buffer when
// the ticker was appended.
func (m *Machine) SubmitInput() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome, err := m.add(m.input)
	if err != nil {
		return m.snapshot(), err
	}
	if outcome == tickers.OutcomeAdded {
		m.input = ""
	}
	return m.snapshot(), nil
}

// QuickAdd adds symbol through the same rules as typed input. The input
// buffer is left alone.
func (m *Machine) QuickAdd(symbol string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.add(symbol); err != nil {
		return m.snapshot(), err
	}
	return m.snapshot(), nil
}

// add rejects adds while a report is loading or shown. A full set is left
// to the ticker set so the caller sees the capacity error.
func (m *Machine) add(raw string) (tickers.Outcome, error) {
	switch m.phase {
	case PhaseLoading:
		return tickers.OutcomeEmpty, ErrBusy
	case PhaseReportReady:
		return tickers.OutcomeEmpty, ErrInputHidden
	}
	return m.tickers.Add(raw)
}

// ClearTickers returns to Idle from any phase with no tickers and no report.
// A generation still in flight is discarded when it completes.
func (m *Machine) ClearTickers() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseLoading {
		m.epoch++
	}
	m.tickers.Clear()
	m.report = ""
	m.failure = nil
	m.phase = PhaseIdle
	return m.snapshot()
}

// ClearReport returns from ReportReady to Idle, keeping the tickers. It
// also dismisses a failure notice. Otherwise it does nothing.
func (m *Machine) ClearReport() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseReportReady {
		m.phase = PhaseIdle
		m.report = ""
	}
	if m.phase == PhaseIdle {
		m.failure = nil
	}
	return m.snapshot()
}

// BeginGenerate moves Idle to Loading and returns the tickers to generate
// for together with the epoch CompleteGenerate must be called with.
func (m *Machine) BeginGenerate() ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canGenerate() {
		return nil, 0, ErrGenerateNotAllowed
	}
	m.phase = PhaseLoading
	m.failure = nil
	m.report = ""
	m.epoch++
	return m.tickers.Symbols(), m.epoch, nil
}

// CompleteGenerate records the result of a generation started with epoch.
// It reports false when the result was discarded because the state moved on.
func (m *Machine) CompleteGenerate(epoch uint64, content string, err error) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || m.phase != PhaseLoading {
		return m.snapshot(), false
	}

	if err != nil {
		m.phase = PhaseIdle
		m.report = ""
		if m.surface {
			m.failure = &Failure{Kind: classify(err), Message: failureMessage}
		}
		return m.snapshot(), true
	}

	m.phase = PhaseReportReady
	m.report = content
	return m.snapshot(), true
}

func classify(err error) FailureKind {
	if errors.Is(err, report.ErrDataFetchFailed) {
		return FailureDataFetch
	}
	return FailureReportGeneration
}

// Generate runs a full generation with g. The returned error is
// ErrGenerateNotAllowed when gated, or the generator's error. A result
// discarded by ClearTickers returns no error.
func (m *Machine) Generate(ctx context.Context, g Generator) (Snapshot, error) {
	symbols, epoch, err := m.BeginGenerate()
	if err != nil {
		return m.Snapshot(), err
	}

	content, genErr := g.Generate(ctx, symbols)
	if genErr != nil {
		m.logger.Error().Strs("tickers", symbols).Err(genErr).Msg("generation failed")
	}

	snap, applied := m.CompleteGenerate(epoch, content, genErr)
	if !applied {
		m.logger.Info().Strs("tickers", symbols).Msg("discarding result of a cleared generation")
		return snap, nil
	}
	return snap, genErr
}
