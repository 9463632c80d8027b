package p2p

import "github.com/ivantse/turtlecoin-v2/internal/primitives"

// Envelope is the overlay's in-process message shape: a ROUTER message
// is two wire frames ([to-identity, payload] outbound, [from-identity,
// payload] inbound, with ROUTER auto-prepending the identity frame);
// Envelope is the richer logical form the dispatcher decodes that pair
// into (spec.md §4.6 "Message envelope"). Subject is carried for
// application-level addressing and is not part of the wire frames.
type Envelope struct {
	From        primitives.Key
	To          primitives.Key // zero value means "not addressed", i.e. inbound
	Subject     primitives.Key
	PeerAddress string
	Payload     []byte
}
