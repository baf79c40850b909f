package cascade

// Store is the contract the root subscription consumes from the state
// container. Any container that can register a change callback and expose
// its current state can drive a subscription tree; the container is
// passed in explicitly at construction, never reached through globals.
type Store interface {
	// Subscribe registers one listener that fires on every state change.
	// The returned function removes the listener and must be safe to call
	// more than once.
	Subscribe(fn func()) (unsubscribe func())

	// GetState returns a snapshot of the current state. It is used only
	// to detect changes that happened between building an observer and
	// attaching its subscription, never for dispatch.
	GetState() any
}
