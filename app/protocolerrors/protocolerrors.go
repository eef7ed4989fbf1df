// Package protocolerrors distinguishes peer-attributable protocol faults
// from benign or transient ones, grounded on kaspad's
// app/protocol/protocolerrors package: a ProtocolError carries whether the
// fault should bump the offending peer's misbehavior score, so the same
// error value can flow from a flow handler up to the connection manager
// without losing that judgment along the way.
package protocolerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ProtocolError is an error a peer caused, to be judged for misbehavior
// scoring rather than treated as this node's own fault.
type ProtocolError struct {
	ShouldBan bool
	Message   string
}

func (e *ProtocolError) Error() string { return e.Message }

// Errorf creates a ProtocolError with a formatted message; shouldBan
// records whether the fault bans the peer outright or only adds to its
// misbehavior score.
func Errorf(shouldBan bool, format string, args ...interface{}) error {
	return &ProtocolError{ShouldBan: shouldBan, Message: fmt.Sprintf(format, args...)}
}

// Wrapf creates a ProtocolError that embeds err's own message alongside
// the additional context, the way errors.Wrapf would for a non-peer
// error.
func Wrapf(shouldBan bool, err error, format string, args ...interface{}) error {
	return &ProtocolError{ShouldBan: shouldBan, Message: errors.Wrapf(err, format, args...).Error()}
}

// IsProtocolError reports whether err is a ProtocolError and, if so,
// whether the peer should be banned outright rather than merely scored.
func IsProtocolError(err error) (shouldBan bool, ok bool) {
	protoErr, ok := err.(*ProtocolError)
	if !ok {
		return false, false
	}
	return protoErr.ShouldBan, true
}
