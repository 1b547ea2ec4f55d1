package statemachine

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// ErrInvalidEvent is returned when an event has no transition from the current state.
var ErrInvalidEvent = errors.New("event not accepted in current state")

// Interpreter runs one load through the chart.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter bound to ctx.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Current = State(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() State {
	return State(i.interp.State().Value)
}

// Send fires an event and returns the new state.
func (i *Interpreter) Send(eventType statekit.EventType) (State, error) {
	from := i.State()
	i.interp.Send(statekit.Event{Type: eventType})

	to := i.State()
	if to == from {
		return from, fmt.Errorf("%w: %s in %s", ErrInvalidEvent, eventType, from)
	}
	i.ctx.Current = to
	return to, nil
}

// IsTerminal reports whether the load has finished.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(s State) bool {
	return i.interp.Matches(statekit.StateID(s))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
