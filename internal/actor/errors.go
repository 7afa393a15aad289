package actor

import "errors"

// ErrStopped is returned by any operation submitted to an actor that has already been stopped.
var ErrStopped = errors.New("group actor stopped")

// ErrAlreadyInitialized is raised by Init when called a second time with a different group id payload.
var ErrAlreadyInitialized = errors.New("group already initialized with different data")
