package model

import (
	"github.com/Raniani-lab/enterpriise-sub000/packages/history"
)

// Mode is the run mode of a model. UI plugins declare the modes they are
// active in.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeHeadless Mode = "headless"
)

// Layer is a numbered rendering layer registered by a UI plugin
type Layer int

const (
	LayerBackground Layer = iota
	LayerHighlights
	LayerClipboard
)

// Plugin is one component of the model. every command is offered to
// AllowDispatch of every plugin, then BeforeHandle and Handle run in
// registration order, then Finalize runs once every plugin handled it.
type Plugin interface {
	Name() string
	AllowDispatch(cmd Command) CancelledReason
	BeforeHandle(cmd Command)
	Handle(cmd Command)
	Finalize()
}

// CorePlugin owns persisted workbook state
type CorePlugin interface {
	Plugin
	Import(data *WorkbookData) error
	Export(data *WorkbookData)
}

// UIPlugin owns transient state derived from the core plugins
type UIPlugin interface {
	Plugin
	Layers() []Layer
	Modes() []Mode
}

// BasePlugin gives plugins access to the model and no-op lifecycle hooks
type BasePlugin struct {
	model *Model
}

func (p *BasePlugin) AllowDispatch(Command) CancelledReason { return ReasonNone }
func (p *BasePlugin) BeforeHandle(Command)                  {}
func (p *BasePlugin) Handle(Command)                        {}
func (p *BasePlugin) Finalize()                             {}

// record writes value at path in the state tree through the history. a
// failure is a broken invariant of the caller and is only logged.
func (p *BasePlugin) record(value any, path ...any) {
	if err := p.model.history.Record(p.model.state, history.Path(path), value); err != nil {
		p.model.logger.Error("failed to record change", "path", path, "error", err)
	}
}

// dispatch runs a subcommand inside the command being handled
func (p *BasePlugin) dispatch(cmd Command) CommandResult {
	return p.model.dispatch(cmd)
}
