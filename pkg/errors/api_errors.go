package errors

import "errors"

// ErrNoSavedState is returned when a backup is requested before anything was saved
var ErrNoSavedState = errors.New("no saved contract state")
