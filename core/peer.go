package core

import (
	"encoding/json"
	"time"
)

// Peer is a messaging transport to a remote front-end.
//
// Implementations must deliver messages in send order per connection, across
// all methods: update ops only make sense in emission order, and a scroll or
// style change sent after an update must not overtake it.
// SendNotification must not block on the network.
type Peer interface {
	SendNotification(method string, params any)
	// SendRequest blocks until the reply arrives or the transport fails.
	// Failures are returned as *schema.TransportError.
	SendRequest(method string, params any) (json.RawMessage, error)
	ScheduleIdle(token int)
	ScheduleTimer(at time.Time, token int)
}
