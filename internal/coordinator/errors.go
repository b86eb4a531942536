package coordinator

import "errors"

// ErrUpdateFailed wraps every error returned by a fetch.
var ErrUpdateFailed = errors.New("coordinator: update failed")
