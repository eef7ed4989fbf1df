package externalapi

// AccountState is the on-chain state of a single address: its confirmed
// balance in minor units and the next nonce it is expected to use.
type AccountState struct {
	Balance uint64
	Nonce   uint64
}

// Clone returns a copy of the account state.
func (s *AccountState) Clone() *AccountState {
	clone := *s
	return &clone
}

// BlockStatus records what a node knows about a block beyond its header.
type BlockStatus uint8

const (
	// StatusHeaderOnly means only the header has been validated and
	// stored; the body has not yet been fetched or admitted.
	StatusHeaderOnly BlockStatus = iota
	// StatusValid means the full block has been validated and applied
	// against some chain state.
	StatusValid
	// StatusInvalid means the block failed consensus validation and must
	// never be reconsidered.
	StatusInvalid
	// StatusUnknownParent means the block's parent has not been seen.
	// AddBlock does not retain such a block, so no stored block carries
	// this status.
	StatusUnknownParent
)

func (s BlockStatus) String() string {
	switch s {
	case StatusHeaderOnly:
		return "header-only"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusUnknownParent:
		return "unknown-parent"
	}
	return "unknown-status"
}
