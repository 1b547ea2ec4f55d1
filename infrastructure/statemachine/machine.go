// Package statemachine provides the statekit chart that drives a cache-backed load.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// State is a node of the load chart.
type State string

// Load chart states.
const (
	StateCache       State = "cache"
	StateFresh       State = "fresh"
	StateRemote      State = "remote"
	StateSynced      State = "synced"
	StateStale       State = "stale"
	StateOffline     State = "offline"
	StateUnavailable State = "unavailable"
)

// IsTerminal reports whether s ends a load.
func (s State) IsTerminal() bool {
	switch s {
	case StateFresh, StateSynced, StateOffline, StateUnavailable:
		return true
	default:
		return false
	}
}

// Load chart events.
const (
	EventHit         statekit.EventType = "HIT"
	EventMiss        statekit.EventType = "MISS"
	EventRefresh     statekit.EventType = "REFRESH"
	EventFetched     statekit.EventType = "FETCHED"
	EventFetchFailed statekit.EventType = "FETCH_FAILED"
	EventStaleHit    statekit.EventType = "STALE_HIT"
	EventStaleMiss   statekit.EventType = "STALE_MISS"
)

// Context carries one load through the chart.
type Context struct {
	// Key is the cache key being loaded.
	Key string

	// Current mirrors the chart state for actions.
	Current State

	// Path lists every state visited, starting with StateCache.
	Path []State

	// OnTransition is called after each transition.
	OnTransition func(from, to State)
}

// NewContext creates a context for loading key.
func NewContext(key string, onTransition func(from, to State)) *Context {
	return &Context{
		Key:          key,
		Current:      StateCache,
		Path:         []State{StateCache},
		OnTransition: onTransition,
	}
}

const (
	stateCache       = statekit.StateID(StateCache)
	stateFresh       = statekit.StateID(StateFresh)
	stateRemote      = statekit.StateID(StateRemote)
	stateSynced      = statekit.StateID(StateSynced)
	stateStale       = statekit.StateID(StateStale)
	stateOffline     = statekit.StateID(StateOffline)
	stateUnavailable = statekit.StateID(StateUnavailable)
)

// NewLoadMachine creates the load chart:
// cache -> fresh | remote -> synced | stale -> offline | unavailable.
func NewLoadMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("load").
		WithInitial(stateCache).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		State(stateCache).
			On(EventHit).Target(stateFresh).Do("recordTransition").
			On(EventMiss).Target(stateRemote).Do("recordTransition").
			On(EventRefresh).Target(stateRemote).Do("recordTransition").
			Done().
		State(stateRemote).
			On(EventFetched).Target(stateSynced).Do("recordTransition").
			On(EventFetchFailed).Target(stateStale).Do("recordTransition").
			Done().
		State(stateStale).
			On(EventStaleHit).Target(stateOffline).Do("recordTransition").
			On(EventStaleMiss).Target(stateUnavailable).Do("recordTransition").
			Done().
		State(stateFresh).
			Final().
			Done().
		State(stateSynced).
			Final().
			Done().
		State(stateOffline).
			Final().
			Done().
		State(stateUnavailable).
			Final().
			Done().
		Build()
}

// targetOf returns the state an event leads to.
func targetOf(eventType statekit.EventType) State {
	switch eventType {
	case EventHit:
		return StateFresh
	case EventMiss, EventRefresh:
		return StateRemote
	case EventFetched:
		return StateSynced
	case EventFetchFailed:
		return StateStale
	case EventStaleHit:
		return StateOffline
	case EventStaleMiss:
		return StateUnavailable
	default:
		return State(eventType)
	}
}
