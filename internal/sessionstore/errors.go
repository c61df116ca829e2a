package sessionstore

import "fmt"

// ErrSessionNotFound is returned by [SessionStore.Get] when no session
// has been saved for the requested username.
var ErrSessionNotFound = fmt.Errorf("session not found")
