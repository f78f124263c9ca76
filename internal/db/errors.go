package db

import "errors"

// ErrNotFound means the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// ErrStaleRun means a CAS update lost the race: the stored version no
// longer matches the version the writer read. The write is discarded.
var ErrStaleRun = errors.New("run was modified concurrently")
