package hub

import "errors"

// ErrHubClosed is returned when subscribing to a hub that has been
// shut down.
var ErrHubClosed = errors.New("hub closed")
