package notify

import "errors"

// ErrNoEndpoint indicates that neither the user nor the global
// configuration provides a notification URL.
var ErrNoEndpoint = errors.New("no notification endpoint configured")
