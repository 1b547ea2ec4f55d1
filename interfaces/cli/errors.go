package cli

import "errors"

// errLimitReached is returned when a scan is refused by the daily budget.
var errLimitReached = errors.New("daily scan limit reached")
