// Package transport defines the byte-stream transport consumed by the
// debug-session core and the single-inflight request/response gate built
// on top of it.
package transport

// Transport is the external collaborator the core talks to: a reliable
// byte-stream connection to the target's debug agent. Concrete
// implementations live in tcptransport and serialtransport; the core
// itself never knows which one it has.
type Transport interface {
	Connect() error
	Disconnect() error
	IsConnected() bool

	// Write sends data to the target. It returns false on any synchronous
	// write failure; the caller treats that identically to a timeout.
	Write(data []byte) bool

	// OnData registers the callback invoked with each chunk of bytes as it
	// arrives. Exactly one handler is kept (latest registration wins, same
	// as the facade's event registry) since the gate is the sole consumer
	// in this module.
	OnData(func([]byte))
	// OnError registers the callback invoked when the underlying
	// connection reports an asynchronous error.
	OnError(func(error))
	// OnClose registers the callback invoked when the connection closes,
	// whether locally or remotely initiated.
	OnClose(func())
}
