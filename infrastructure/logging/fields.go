package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Key adds a storage key field.
func Key(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", key)
	}
}

// Keys adds the number of keys touched by a bulk operation.
func Keys(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("keys", n)
	}
}

// Operation adds an operation name field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Component adds a component name field.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Driver adds a storage driver field.
func Driver(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("driver", name)
	}
}

// AgeHours adds an entry age in hours.
func AgeHours(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("age_hours", d.Hours())
	}
}

// ExpiryHours adds an expiry window in hours.
func ExpiryHours(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("expiry_hours", d.Hours())
	}
}

// Bytes adds a size in bytes.
func Bytes(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("bytes", n)
	}
}

// Usage adds rate-limit usage fields.
func Usage(used, remaining, limit int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("used", used).Int("remaining", remaining).Int("limit", limit)
	}
}

// UserID adds a user id field.
func UserID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("user_id", id)
	}
}

// PlantID adds a plant id field.
func PlantID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("plant_id", id)
	}
}

// Source adds the data source of a load (fresh, remote, stale).
func Source(src string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("source", src)
	}
}

// FromState adds a from_state field for transitions.
func FromState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", s)
	}
}

// ToState adds a to_state field for transitions.
func ToState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", s)
	}
}

// Count adds a count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Offline adds the offline flag.
func Offline(offline bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("offline", offline)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Err(err)
	}
}

// Str adds a custom string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
