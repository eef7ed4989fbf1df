package appmessage

// PingMessage carries a nonce a peer must echo back in a PongMessage, for
// liveness and RTT estimation.
type PingMessage struct {
	Nonce uint64
}

// Command implements Message.
func (msg *PingMessage) Command() MessageCommand { return CmdPing }

// NewPingMessage returns a new PingMessage.
func NewPingMessage(nonce uint64) *PingMessage { return &PingMessage{Nonce: nonce} }

// PongMessage echoes a PingMessage's nonce.
type PongMessage struct {
	Nonce uint64
}

// Command implements Message.
func (msg *PongMessage) Command() MessageCommand { return CmdPong }

// NewPongMessage returns a new PongMessage.
func NewPongMessage(nonce uint64) *PongMessage { return &PongMessage{Nonce: nonce} }
