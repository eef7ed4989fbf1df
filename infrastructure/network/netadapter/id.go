package netadapter

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// idLength is the byte length of a peer ID.
const idLength = 16

// ID is a random key the handshake generates for each connection, used to
// index that connection in the net adapter and flow context. It is not
// sent to the remote node, so it does not identify that node across
// reconnections.
type ID [idLength]byte

// GenerateID creates a new random ID.
func GenerateID() (*ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate peer ID")
	}
	return &id, nil
}

func (id *ID) String() string {
	return hex.EncodeToString(id[:])
}

// Equal reports whether id and other identify the same peer.
func (id *ID) Equal(other *ID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return *id == *other
}
