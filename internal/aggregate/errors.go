package aggregate

import "fmt"

// Failure reports a contract violation such as a negative TTL window. It is
// distinct from per-symbol warnings, which never abort a request.
type Failure struct {
	Reason string
}

func (e *Failure) Error() string {
	return "aggregation failure: " + e.Reason
}

// CacheUnavailableError reports that the cache store could not be reached.
// TTL semantics cannot be guaranteed without the store, so this propagates to
// the caller as a hard error instead of degrading to a warning.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache store unavailable during %s: %v", e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error {
	return e.Err
}
