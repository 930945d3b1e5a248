package domain

// Mutation is a client-originated change queued while the device was offline
// and replayed against the server on push. The payload is opaque at this
// level; each action interprets the fields it needs. QueueID is a client-local
// token used only to correlate the push response with the client's queue.
type Mutation struct {
	QueueID   string
	Action    string
	Payload   map[string]any
	CreatedAt *int64 // Milliseconds since epoch, optional
}
