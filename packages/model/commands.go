package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// CommandType is the tag of a command
type CommandType string

const (
	CmdStart         CommandType = "START"
	CmdCreateSheet   CommandType = "CREATE_SHEET"
	CmdDeleteSheet   CommandType = "DELETE_SHEET"
	CmdRenameSheet   CommandType = "RENAME_SHEET"
	CmdUpdateCell    CommandType = "UPDATE_CELL"
	CmdClearCell     CommandType = "CLEAR_CELL"
	CmdAddColumns    CommandType = "ADD_COLUMNS"
	CmdAddRows       CommandType = "ADD_ROWS"
	CmdRemoveColumns CommandType = "REMOVE_COLUMNS"
	CmdRemoveRows    CommandType = "REMOVE_ROWS"
	CmdAddMerge      CommandType = "ADD_MERGE"
	CmdRemoveMerge   CommandType = "REMOVE_MERGE"
	CmdCopy          CommandType = "COPY"
	CmdPaste         CommandType = "PASTE"
	CmdUndo          CommandType = "UNDO"
	CmdRedo          CommandType = "REDO"
)

// Command is one atomic requested mutation. the set of commands is closed.
type Command interface {
	Type() CommandType
	command()
}

// interactive commands may ask for a user decision while they are handled
type interactive interface {
	IsInteractive() bool
}

// Position of inserted rows or columns relative to the base index
const (
	Before = "before"
	After  = "after"
)

// Start is dispatched once, after a workbook was imported
type Start struct{}

type CreateSheet struct {
	SheetID  string `mapstructure:"sheetId"`
	Name     string `mapstructure:"name"`
	Position int    `mapstructure:"position"`
	Cols     int    `mapstructure:"cols"`
	Rows     int    `mapstructure:"rows"`
}

type DeleteSheet struct {
	SheetID string `mapstructure:"sheetId"`
}

type RenameSheet struct {
	SheetID string `mapstructure:"sheetId"`
	Name    string `mapstructure:"name"`
}

// UpdateCell changes the content, style or format of one cell. nil fields
// are left untouched, empty strings clear them.
type UpdateCell struct {
	SheetID string  `mapstructure:"sheetId"`
	Col     int     `mapstructure:"col"`
	Row     int     `mapstructure:"row"`
	Content *string `mapstructure:"content"`
	Style   *string `mapstructure:"style"`
	Format  *string `mapstructure:"format"`
}

type ClearCell struct {
	SheetID string `mapstructure:"sheetId"`
	Col     int    `mapstructure:"col"`
	Row     int    `mapstructure:"row"`
}

type AddColumns struct {
	SheetID  string `mapstructure:"sheetId"`
	Column   int    `mapstructure:"column"`
	Position string `mapstructure:"position"`
	Quantity int    `mapstructure:"quantity"`
}

type AddRows struct {
	SheetID  string `mapstructure:"sheetId"`
	Row      int    `mapstructure:"row"`
	Position string `mapstructure:"position"`
	Quantity int    `mapstructure:"quantity"`
}

type RemoveColumns struct {
	SheetID string `mapstructure:"sheetId"`
	Columns []int  `mapstructure:"columns"`
}

type RemoveRows struct {
	SheetID string `mapstructure:"sheetId"`
	Rows    []int  `mapstructure:"rows"`
}

// AddMerge merges a zone. a merge hiding non empty cells is destructive: it
// needs Force, or Interactive with a confirmation.
type AddMerge struct {
	SheetID     string `mapstructure:"sheetId"`
	Target      string `mapstructure:"target"`
	Force       bool   `mapstructure:"force"`
	Interactive bool   `mapstructure:"interactive"`
}

type RemoveMerge struct {
	SheetID string `mapstructure:"sheetId"`
	Target  string `mapstructure:"target"`
}

type Copy struct {
	SheetID string `mapstructure:"sheetId"`
	Target  string `mapstructure:"target"`
}

// Paste writes the clipboard with its top-left corner at Target
type Paste struct {
	SheetID string `mapstructure:"sheetId"`
	Target  string `mapstructure:"target"`
}

type Undo struct{}

type Redo struct{}

func (Start) Type() CommandType         { return CmdStart }
func (CreateSheet) Type() CommandType   { return CmdCreateSheet }
func (DeleteSheet) Type() CommandType   { return CmdDeleteSheet }
func (RenameSheet) Type() CommandType   { return CmdRenameSheet }
func (UpdateCell) Type() CommandType    { return CmdUpdateCell }
func (ClearCell) Type() CommandType     { return CmdClearCell }
func (AddColumns) Type() CommandType    { return CmdAddColumns }
func (AddRows) Type() CommandType       { return CmdAddRows }
func (RemoveColumns) Type() CommandType { return CmdRemoveColumns }
func (RemoveRows) Type() CommandType    { return CmdRemoveRows }
func (AddMerge) Type() CommandType      { return CmdAddMerge }
func (RemoveMerge) Type() CommandType   { return CmdRemoveMerge }
func (Copy) Type() CommandType          { return CmdCopy }
func (Paste) Type() CommandType         { return CmdPaste }
func (Undo) Type() CommandType          { return CmdUndo }
func (Redo) Type() CommandType          { return CmdRedo }

func (Start) command()         {}
func (CreateSheet) command()   {}
func (DeleteSheet) command()   {}
func (RenameSheet) command()   {}
func (UpdateCell) command()    {}
func (ClearCell) command()     {}
func (AddColumns) command()    {}
func (AddRows) command()       {}
func (RemoveColumns) command() {}
func (RemoveRows) command()    {}
func (AddMerge) command()      {}
func (RemoveMerge) command()   {}
func (Copy) command()          {}
func (Paste) command()         {}
func (Undo) command()          {}
func (Redo) command()          {}

func (c AddMerge) IsInteractive() bool { return c.Interactive }

// Status of a dispatch
type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusCancelled Status = "CANCELLED"
)

// CancelledReason is the closed set of reasons a command can be rejected for
type CancelledReason string

const (
	ReasonNone                    CancelledReason = ""
	ReasonNotEnoughColumns        CancelledReason = "NotEnoughColumns"
	ReasonNotEnoughRows           CancelledReason = "NotEnoughRows"
	ReasonNotEnoughSheets         CancelledReason = "NotEnoughSheets"
	ReasonEmptyClipboard          CancelledReason = "EmptyClipboard"
	ReasonWillRemoveExistingMerge CancelledReason = "WillRemoveExistingMerge"
	ReasonMergeIsDestructive      CancelledReason = "MergeIsDestructive"
	ReasonInvalidSheetID          CancelledReason = "InvalidSheetID"
	ReasonDuplicatedSheetName     CancelledReason = "DuplicatedSheetName"
	ReasonMissingSheetName        CancelledReason = "MissingSheetName"
	ReasonTargetOutOfSheet        CancelledReason = "TargetOutOfSheet"
	ReasonEmptyUndoStack          CancelledReason = "EmptyUndoStack"
	ReasonEmptyRedoStack          CancelledReason = "EmptyRedoStack"
	ReasonInvalidCommand          CancelledReason = "InvalidCommand"
)

// CommandResult is the outcome of a dispatch
type CommandResult struct {
	Status Status          `json:"status"`
	Reason CancelledReason `json:"reason,omitempty"`
}

// Success is the result of an accepted command
var Success = CommandResult{Status: StatusSuccess}

// Cancelled builds the result of a rejected command
func Cancelled(reason CancelledReason) CommandResult {
	return CommandResult{Status: StatusCancelled, Reason: reason}
}

// IsSuccess reports whether the command was accepted
func (r CommandResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

var commandFactories = map[CommandType]func() Command{
	CmdStart:         func() Command { return &Start{} },
	CmdCreateSheet:   func() Command { return &CreateSheet{} },
	CmdDeleteSheet:   func() Command { return &DeleteSheet{} },
	CmdRenameSheet:   func() Command { return &RenameSheet{} },
	CmdUpdateCell:    func() Command { return &UpdateCell{} },
	CmdClearCell:     func() Command { return &ClearCell{} },
	CmdAddColumns:    func() Command { return &AddColumns{} },
	CmdAddRows:       func() Command { return &AddRows{} },
	CmdRemoveColumns: func() Command { return &RemoveColumns{} },
	CmdRemoveRows:    func() Command { return &RemoveRows{} },
	CmdAddMerge:      func() Command { return &AddMerge{} },
	CmdRemoveMerge:   func() Command { return &RemoveMerge{} },
	CmdCopy:          func() Command { return &Copy{} },
	CmdPaste:         func() Command { return &Paste{} },
	CmdUndo:          func() Command { return &Undo{} },
	CmdRedo:          func() Command { return &Redo{} },
}

// CommandTypes lists every known command type, sorted
func CommandTypes() []string {
	types := make([]string, 0, len(commandFactories))
	for t := range commandFactories {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// DecodeCommand builds a typed command from its tagged payload form
// {"type": "UPDATE_CELL", "sheetId": ..., ...}. unknown fields are rejected.
func DecodeCommand(payload map[string]any) (Command, error) {
	rawType, _ := payload["type"].(string)
	factory, ok := commandFactories[CommandType(strings.ToUpper(rawType))]
	if !ok {
		return nil, appErrorf(InvalidArgument, "unknown command type %q", rawType)
	}
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		if k != "type" {
			fields[k] = v
		}
	}
	target := factory()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, appErrorf(Internal, "failed to build decoder: %v", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, appErrorf(InvalidArgument, "invalid %s payload: %v", rawType, err)
	}
	return dereference(target), nil
}

// dereference turns the decoded pointer back into the value form handlers
// switch on
func dereference(c Command) Command {
	switch v := c.(type) {
	case *Start:
		return *v
	case *CreateSheet:
		return *v
	case *DeleteSheet:
		return *v
	case *RenameSheet:
		return *v
	case *UpdateCell:
		return *v
	case *ClearCell:
		return *v
	case *AddColumns:
		return *v
	case *AddRows:
		return *v
	case *RemoveColumns:
		return *v
	case *RemoveRows:
		return *v
	case *AddMerge:
		return *v
	case *RemoveMerge:
		return *v
	case *Copy:
		return *v
	case *Paste:
		return *v
	case *Undo:
		return *v
	case *Redo:
		return *v
	}
	panic(fmt.Sprintf("unhandled command %T", c))
}
