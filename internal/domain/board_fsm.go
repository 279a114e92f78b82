package domain

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Board columns.
const (
	BoardTodo     = "TODO"
	BoardDoing    = "DOING"
	BoardDone     = "DONE"
	BoardCanceled = "CANCELED"
)

var BoardStatuses = []string{BoardTodo, BoardDoing, BoardDone, BoardCanceled}

// ValidBoardStatus reports whether s names a board column.
func ValidBoardStatus(s string) bool { return oneOf(s, BoardStatuses) }

type boardContext struct {
	CardID string
}

// BoardMachine tracks one card's column. Every column reaches every other
// column directly; the event name is the target column.
type BoardMachine struct {
	interpreter *statekit.Interpreter[boardContext]
}

func NewBoardMachine(cardID, current string) (*BoardMachine, error) {
	if !ValidBoardStatus(current) {
		return nil, ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a board column", current)}
	}
	builder := statekit.NewMachine[boardContext]("board-card").
		WithInitial(statekit.StateID(current)).
		WithContext(boardContext{CardID: cardID})

	builder.State(BoardTodo).
		On(BoardDoing).Target(BoardDoing).
		On(BoardDone).Target(BoardDone).
		On(BoardCanceled).Target(BoardCanceled).
		Done()

	builder.State(BoardDoing).
		On(BoardTodo).Target(BoardTodo).
		On(BoardDone).Target(BoardDone).
		On(BoardCanceled).Target(BoardCanceled).
		Done()

	builder.State(BoardDone).
		On(BoardTodo).Target(BoardTodo).
		On(BoardDoing).Target(BoardDoing).
		On(BoardCanceled).Target(BoardCanceled).
		Done()

	builder.State(BoardCanceled).
		On(BoardTodo).Target(BoardTodo).
		On(BoardDoing).Target(BoardDoing).
		On(BoardDone).Target(BoardDone).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build board machine: %w", err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &BoardMachine{interpreter: interp}, nil
}

func (m *BoardMachine) Current() string {
	return string(m.interpreter.State().Value)
}

// MoveTo sends the card to target. Moving to the current column is a no-op.
func (m *BoardMachine) MoveTo(target string) error {
	if !ValidBoardStatus(target) {
		return ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a board column", target)}
	}
	before := m.Current()
	if before == target {
		return nil
	}
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(target)})
	if after := m.Current(); after != target {
		return fmt.Errorf("board card cannot move from %s to %s", before, target)
	}
	return nil
}
