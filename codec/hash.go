package codec

import (
	"bytes"
	"hash"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"golang.org/x/crypto/blake2b"
)

// HashWriter is an io.Writer that accumulates a single BLAKE2b-256 digest
// over everything written to it. BLAKE2b-256 is used instead of the
// Bitcoin-style double-SHA256 scheme because content-addressing here needs
// exactly one reduction pass over the canonical bytes; a double hash is a
// Bitcoin compatibility artifact this protocol has no reason to carry.
type HashWriter struct {
	hasher hash.Hash
}

// NewHashWriter returns a HashWriter ready to accumulate bytes.
func NewHashWriter() *HashWriter {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails when a non-nil key exceeds 64 bytes.
		panic(err)
	}
	return &HashWriter{hasher: hasher}
}

// Write implements io.Writer.
func (w *HashWriter) Write(p []byte) (int, error) {
	return w.hasher.Write(p)
}

// Finalize returns the accumulated digest as a DomainHash.
func (w *HashWriter) Finalize() externalapi.DomainHash {
	var hash externalapi.DomainHash
	copy(hash[:], w.hasher.Sum(nil))
	return hash
}

// HashBytes returns the BLAKE2b-256 digest of b.
func HashBytes(b []byte) externalapi.DomainHash {
	return blake2b.Sum256(b)
}

// HashTensor returns the digest of t's canonical encoding, used to check a
// claim's OutputHash against a recomputed reference tensor without
// comparing the (potentially large) element arrays directly.
func HashTensor(t *externalapi.DomainTensor) externalapi.DomainHash {
	return hashEncoded(func(w *bytes.Buffer) error {
		return EncodeTensor(w, t)
	})
}

// hashEncoded runs encode against a HashWriter and finalizes the digest. It
// panics if encode returns an error, since encoding into an in-memory
// writer has no failure mode other than a programming error in the caller's
// encode function.
func hashEncoded(encode func(w *bytes.Buffer) error) externalapi.DomainHash {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		panic(err)
	}
	return HashBytes(buf.Bytes())
}
