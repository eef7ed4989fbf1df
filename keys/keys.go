// Package keys derives protocol addresses from signer public keys and
// signs/verifies transactions, grounded on the secp256k1/Schnorr primitives
// kaspad uses throughout its txscript and signing tools.
package keys

import (
	"encoding/hex"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// ParseAddress decodes a hex-encoded address as printed by
// externalapi.DomainAddress.String, for CLI flags and config files that
// name a payee address directly rather than deriving it from a keypair.
func ParseAddress(s string) (externalapi.DomainAddress, error) {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode address")
	}
	if len(decoded) != 20 && len(decoded) != 32 {
		return nil, errors.Errorf("address has invalid length %d", len(decoded))
	}
	return externalapi.DomainAddress(decoded), nil
}

// KeyPair wraps a secp256k1 keypair used to derive an address and to sign
// transactions on its behalf.
type KeyPair struct {
	privateKey *secp256k1.PrivateKey
	publicKey  *secp256k1.SchnorrPublicKey
}

// Generate creates a new random keypair.
func Generate() (*KeyPair, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate private key")
	}
	publicKey, err := privateKey.SchnorrPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}
	return &KeyPair{privateKey: privateKey, publicKey: publicKey}, nil
}

// FromPrivateKeyBytes reconstructs a KeyPair from a serialized private key.
func FromPrivateKeyBytes(b []byte) (*KeyPair, error) {
	privateKey, err := secp256k1.DeserializePrivateKeyFromSlice(b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to deserialize private key")
	}
	publicKey, err := privateKey.SchnorrPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive public key")
	}
	return &KeyPair{privateKey: privateKey, publicKey: publicKey}, nil
}

// Address derives the protocol address for this keypair: the 32-byte
// BLAKE2b-256 digest of the compressed public key.
func (kp *KeyPair) Address() (externalapi.DomainAddress, error) {
	return AddressForPublicKey(kp.publicKey)
}

// AddressForPublicKey derives a protocol address from a raw public key.
func AddressForPublicKey(publicKey *secp256k1.SchnorrPublicKey) (externalapi.DomainAddress, error) {
	serialized, err := publicKey.SerializeCompressed()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize public key")
	}
	digest := codec.HashBytes(serialized[:])
	return externalapi.DomainAddress(digest[:]), nil
}

// SignTransaction embeds this keypair's public key into tx, signs tx's
// canonical body (every field but Signature) with the private key, and
// sets tx.Signature and tx.ID.
func (kp *KeyPair) SignTransaction(tx *externalapi.DomainTransaction) error {
	serializedPublicKey, err := kp.publicKey.SerializeCompressed()
	if err != nil {
		return errors.Wrap(err, "failed to serialize public key")
	}
	tx.SenderPublicKey = serializedPublicKey[:]

	id := codec.TransactionID(tx)
	signature, err := kp.privateKey.SchnorrSign(id[:])
	if err != nil {
		return errors.Wrap(err, "failed to sign transaction")
	}
	serializedSignature, err := signature.Serialize()
	if err != nil {
		return errors.Wrap(err, "failed to serialize signature")
	}
	tx.Signature = serializedSignature[:]
	tx.ID = &id
	return nil
}

// VerifyTransactionSignature verifies that tx's embedded SenderPublicKey
// derives tx.Sender and that tx.Signature is a valid signature over tx's
// canonical body under that key. This is the sole gate a transaction must
// pass to be considered well-signed; it needs no peer or store lookup.
func VerifyTransactionSignature(tx *externalapi.DomainTransaction) (bool, error) {
	publicKey, err := secp256k1.DeserializeSchnorrPubKey(tx.SenderPublicKey)
	if err != nil {
		return false, nil
	}

	derivedAddress, err := AddressForPublicKey(publicKey)
	if err != nil {
		return false, err
	}
	if !derivedAddress.Equal(tx.Sender) {
		return false, nil
	}

	var signature secp256k1.SchnorrSignature
	if len(tx.Signature) != len(signature) {
		return false, errors.Errorf("signature has invalid length %d", len(tx.Signature))
	}
	copy(signature[:], tx.Signature)

	id := codec.TransactionID(tx)
	return publicKey.SchnorrVerify(id[:], &signature)
}
