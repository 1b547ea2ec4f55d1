package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// recordTransition appends the target state to the path and notifies the hook.
// Actions receive a pointer to the machine context, hence **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	from := c.Current
	to := targetOf(event.Type)

	c.Current = to
	c.Path = append(c.Path, to)
	if c.OnTransition != nil {
		c.OnTransition(from, to)
	}
}
