package hub

// Transport is the send/close capability the transport layer hands to the core
// for each persistent connection. The core never blocks on Send while holding
// shared-state locks, so implementations may block for a bounded time.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(payload []byte) error
	Close() error
}
