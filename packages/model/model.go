package model

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Raniani-lab/enterpriise-sub000/packages/formula"
	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/history"
)

// DispatchStatus is the state of the dispatcher
type DispatchStatus string

const (
	StatusReady       DispatchStatus = "ready"
	StatusRunning     DispatchStatus = "running"
	StatusFinalizing  DispatchStatus = "finalizing"
	StatusInteractive DispatchStatus = "interactive"
)

// DefaultSchedulerInterval is the polling interval of async evaluation
const DefaultSchedulerInterval = 10 * time.Millisecond

type settings struct {
	historyLimit      int
	mode              Mode
	logger            *slog.Logger
	metrics           *Metrics
	askConfirmation   func(message string) bool
	schedulerInterval time.Duration
	functions         *functions.Registry
}

// Option configures a Model
type Option func(*settings)

// WithHistoryLimit bounds the number of undoable commands
func WithHistoryLimit(n int) Option {
	return func(s *settings) {
		s.historyLimit = n
	}
}

// WithMode sets the run mode. UI plugins not declaring it are left out.
func WithMode(mode Mode) Option {
	return func(s *settings) {
		s.mode = mode
	}
}

// WithLogger sets the logger of the model and its components
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics reports dispatches and evaluations to prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithAskConfirmation sets the callback interactive commands use to ask
// the user before a destructive change
func WithAskConfirmation(ask func(message string) bool) Option {
	return func(s *settings) {
		s.askConfirmation = ask
	}
}

// WithSchedulerInterval sets the async polling interval. zero disables the
// background scheduler: async results are then only picked up by Tick.
func WithSchedulerInterval(d time.Duration) Option {
	return func(s *settings) {
		s.schedulerInterval = d
	}
}

// WithFunctions evaluates formulas against a custom function catalog
func WithFunctions(r *functions.Registry) Option {
	return func(s *settings) {
		s.functions = r
	}
}

// Model is the spreadsheet kernel: a command-sourced state tree shared by an
// ordered list of plugins, with one undo history. it is safe for concurrent
// use, commands are handled one at a time.
type Model struct {
	mu sync.Mutex
	settings

	state    history.Object
	history  *history.History
	compiler *formula.Compiler
	styles   *InternTable
	formats  *InternTable
	status   DispatchStatus

	sheets     *SheetPlugin
	merges     *MergePlugin
	evaluation *EvaluationPlugin
	clipboard  *ClipboardPlugin

	plugins []Plugin
	core    []CorePlugin

	scheduler *Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a model holding one empty sheet
func New(opts ...Option) *Model {
	m, err := Load(NewWorkbookData(), opts...)
	if err != nil {
		// the default workbook is always valid
		panic(err)
	}
	return m
}

// Load creates a model from workbook data, then dispatches START
func Load(data *WorkbookData, opts ...Option) (*Model, error) {
	s := settings{
		historyLimit:      history.DefaultMaxSteps,
		mode:              ModeNormal,
		logger:            slog.Default(),
		schedulerInterval: DefaultSchedulerInterval,
		functions:         functions.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	m := &Model{
		settings: s,
		state: history.Object{
			"sheets": history.Object{},
			"order":  []string{},
			"merges": history.Object{},
		},
		history:  history.New(history.WithMaxSteps(s.historyLimit), history.WithLogger(s.logger)),
		compiler: formula.NewCompiler(formula.WithRegistry(s.functions), formula.WithLogger(s.logger)),
		styles:   NewInternTable(),
		formats:  NewInternTable(),
		status:   StatusReady,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.sheets = &SheetPlugin{BasePlugin: BasePlugin{model: m}}
	m.merges = &MergePlugin{BasePlugin: BasePlugin{model: m}}
	m.evaluation = newEvaluationPlugin(m)
	m.clipboard = &ClipboardPlugin{BasePlugin: BasePlugin{model: m}}

	m.core = []CorePlugin{m.sheets, m.merges}
	for _, p := range m.core {
		m.plugins = append(m.plugins, p)
	}
	for _, p := range []UIPlugin{m.evaluation, m.clipboard} {
		if hasMode(p.Modes(), m.mode) {
			m.plugins = append(m.plugins, p)
		}
	}
	m.scheduler = NewScheduler(m.schedulerInterval, m.tick)

	if data.Version != CurrentVersion {
		m.cancel()
		return nil, appErrorf(Unimplemented, "workbook version %d is not supported, migrate it to %d first", data.Version, CurrentVersion)
	}
	for _, p := range m.core {
		if err := p.Import(data); err != nil {
			m.cancel()
			return nil, err
		}
	}
	m.mu.Lock()
	m.dispatch(Start{})
	m.history.Clear()
	m.mu.Unlock()
	m.kickScheduler()
	return m, nil
}

func hasMode(modes []Mode, mode Mode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Dispatch validates a command against every plugin and handles it. a
// cancelled command leaves no trace.
func (m *Model) Dispatch(cmd Command) CommandResult {
	m.mu.Lock()
	result := m.dispatch(cmd)
	m.mu.Unlock()
	m.kickScheduler()
	return result
}

func (m *Model) dispatch(cmd Command) CommandResult {
	if m.status != StatusReady {
		// a subcommand joins the command being handled
		if reason := m.allowDispatch(cmd); reason != ReasonNone {
			m.logger.Debug("subcommand cancelled", "type", cmd.Type(), "reason", reason)
			return Cancelled(reason)
		}
		m.handle(cmd)
		return Success
	}

	if reason := m.allowDispatch(cmd); reason != ReasonNone {
		m.logger.Debug("command cancelled", "type", cmd.Type(), "reason", reason)
		m.metrics.observeCommand(cmd.Type(), StatusCancelled)
		return Cancelled(reason)
	}

	m.status = StatusRunning
	if ic, ok := cmd.(interactive); ok && ic.IsInteractive() {
		m.status = StatusInteractive
	}
	switch cmd.(type) {
	case Undo:
		if err := m.history.Undo(); err != nil {
			m.logger.Error("undo failed", "error", err)
		}
	case Redo:
		if err := m.history.Redo(); err != nil {
			m.logger.Error("redo failed", "error", err)
		}
	default:
		m.history.Begin()
	}
	m.handle(cmd)

	m.status = StatusFinalizing
	for _, p := range m.plugins {
		p.Finalize()
	}
	switch cmd.(type) {
	case Undo, Redo:
	default:
		m.history.Seal()
	}
	m.status = StatusReady
	m.metrics.observeCommand(cmd.Type(), StatusSuccess)
	return Success
}

func (m *Model) allowDispatch(cmd Command) CancelledReason {
	switch cmd.(type) {
	case Undo:
		if !m.history.CanUndo() {
			return ReasonEmptyUndoStack
		}
	case Redo:
		if !m.history.CanRedo() {
			return ReasonEmptyRedoStack
		}
	}
	for _, p := range m.plugins {
		if reason := p.AllowDispatch(cmd); reason != ReasonNone {
			return reason
		}
	}
	return ReasonNone
}

func (m *Model) handle(cmd Command) {
	for _, p := range m.plugins {
		p.BeforeHandle(cmd)
	}
	for _, p := range m.plugins {
		p.Handle(cmd)
	}
}

// askConfirmation asks the user a question while an interactive command is
// handled. outside of one, or without a callback, the answer is no.
func (m *Model) askConfirmation(message string) bool {
	if m.status != StatusInteractive || m.settings.askConfirmation == nil {
		return false
	}
	return m.settings.askConfirmation(message)
}

// tick runs one scheduler tick and returns the number of async calls still
// in flight
func (m *Model) tick() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluation.Tick()
	return m.evaluation.outstanding
}

func (m *Model) kickScheduler() {
	m.mu.Lock()
	busy := m.evaluation.outstanding > 0
	m.mu.Unlock()
	if busy {
		m.scheduler.Start()
	}
}

// Tick picks up settled async results and re-evaluates the cells waiting
// on them. the scheduler calls it periodically, tests can call it directly.
func (m *Model) Tick() {
	m.tick()
	m.kickScheduler()
}

// Close stops the scheduler and cancels async calls in flight
func (m *Model) Close() {
	m.scheduler.Close()
	m.cancel()
}

// Status returns the dispatcher state
func (m *Model) Status() DispatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Mode returns the run mode
func (m *Model) Mode() Mode {
	return m.mode
}

// Layers returns the rendering layers of the active UI plugins, sorted
func (m *Model) Layers() []Layer {
	var layers []Layer
	for _, p := range m.plugins {
		if ui, ok := p.(UIPlugin); ok {
			layers = append(layers, ui.Layers()...)
		}
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	return layers
}

// CanUndo reports whether a command can be undone
func (m *Model) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanUndo()
}

// CanRedo reports whether an undone command can be redone
func (m *Model) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanRedo()
}

// Export serializes the workbook through every core plugin
func (m *Model) Export() *WorkbookData {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := &WorkbookData{
		Version: CurrentVersion,
		Styles:  map[uint32]string{},
		Formats: map[uint32]string{},
	}
	for _, p := range m.core {
		p.Export(data)
	}
	return data
}
