package livefeed

import "grievance/backend/internal/notify"

// Client is one live connection of a signed-in user. A user may hold several.
type Client interface {
	// GetUserID returns the id of the user the connection belongs to.
	GetUserID() uint
	// GetSendChannel returns the channel the hub writes notifications to.
	GetSendChannel() chan<- notify.Message
	// Run starts the client's pumps.
	Run()
	// Close shuts the send side down. The hub calls it exactly once, on unregister.
	Close()
}
