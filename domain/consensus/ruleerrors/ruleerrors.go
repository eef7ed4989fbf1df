// Package ruleerrors enumerates the consensus-rule violations a block or
// transaction can fail, grounded on kaspad's
// domain/consensus/ruleerrors package: one sentinel error per rule,
// wrapped with context via github.com/pkg/errors at the call site rather
// than carrying its own formatted string. Callers distinguish error kinds
// with errors.Is/errors.As against these sentinels, never by parsing
// messages.
package ruleerrors

import "github.com/pkg/errors"

// RuleError wraps a sentinel rule violation with the specific context that
// triggered it, keeping errors.Is(err, ErrX) working through
// github.com/pkg/errors wrapping.
type RuleError struct {
	Err error
}

func (e *RuleError) Error() string { return e.Err.Error() }
func (e *RuleError) Unwrap() error { return e.Err }

// New wraps sentinel with a formatted context message, mirroring
// kaspad's errors.Wrapf(sentinel, ...) call sites.
func New(sentinel error, format string, args ...interface{}) error {
	return &RuleError{Err: errors.Wrapf(sentinel, format, args...)}
}

// Malformed-kind sentinels: bytes fail to decode against the canonical
// format.
var (
	ErrMalformedTransaction = errors.New("transaction failed to decode")
	ErrMalformedBlock       = errors.New("block failed to decode")
	ErrMalformedHeader      = errors.New("header failed to decode")
)

// Invalid-kind sentinels: decoded but violates a consensus rule.
var (
	ErrBadSignature            = errors.New("transaction signature does not verify")
	ErrWrongNonce              = errors.New("transaction nonce does not match sender's current nonce")
	ErrInsufficientBalance     = errors.New("transaction amount plus fee exceeds sender balance")
	ErrBadMerkleRoot           = errors.New("block merkle root does not match header")
	ErrBadTaskBindingDigest    = errors.New("block task binding digest does not match header")
	ErrBelowTarget             = errors.New("header hash does not meet the effective target")
	ErrBadDifficultyBits       = errors.New("header difficulty bits do not match required difficulty")
	ErrBadParentLinkage        = errors.New("header height does not follow its parent")
	ErrTimestampTooFarInFuture = errors.New("header timestamp exceeds the allowed skew ahead of local time")
	ErrBadCoinbaseAmount       = errors.New("coinbase transaction amount does not match subsidy plus fees plus task rewards")
	ErrBadCoinbaseSender       = errors.New("coinbase transaction has a non-zero sender")
	ErrTooManyTaskClaims       = errors.New("block exceeds the maximum task claims per block")
	ErrDuplicateTaskClaim      = errors.New("block finalizes the same task twice")
	ErrClaimTaskMismatch       = errors.New("claim does not match the referenced task")
	ErrClaimVerificationFailed = errors.New("claimed output does not match the reference evaluation")
	ErrTaskNotOpen             = errors.New("claim references a task that is not open")
	ErrDuplicateTaskCreation   = errors.New("task creation record duplicates an existing task ID")
	ErrUnknownPayloadKind      = errors.New("transaction carries an unrecognized payload kind")
	ErrEmptyTransactionList    = errors.New("block has no transactions")
)

// Unknown-parent: an otherwise well-formed block whose parent has not yet
// been seen. Not itself invalid: AddBlock returns it without storing the
// block or marking it invalid, and the relay flow answers it with a header
// sync rather than scoring the sending peer. No orphan pool holds the block.
var ErrUnknownParent = errors.New("block's parent has not been seen")

// IsInvalid reports whether err represents an Invalid-kind rule violation
// as opposed to a Malformed or Unknown-parent one, letting callers decide
// whether to bump a peer's misbehavior score: Invalid does,
// Unknown-parent and Malformed-from-truncation do not necessarily.
func IsInvalid(err error) bool {
	switch errors.Cause(unwrapRuleError(err)) {
	case ErrBadSignature, ErrWrongNonce, ErrInsufficientBalance, ErrBadMerkleRoot,
		ErrBadTaskBindingDigest, ErrBelowTarget, ErrBadDifficultyBits, ErrBadParentLinkage,
		ErrTimestampTooFarInFuture, ErrBadCoinbaseAmount, ErrBadCoinbaseSender,
		ErrTooManyTaskClaims, ErrDuplicateTaskClaim, ErrClaimTaskMismatch,
		ErrClaimVerificationFailed, ErrTaskNotOpen, ErrDuplicateTaskCreation,
		ErrUnknownPayloadKind, ErrEmptyTransactionList:
		return true
	}
	return false
}

// IsUnknownParent reports whether err indicates a block whose parent is
// not yet present, rather than an invalid or malformed one.
func IsUnknownParent(err error) bool {
	return errors.Cause(unwrapRuleError(err)) == ErrUnknownParent
}

func unwrapRuleError(err error) error {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Err
	}
	return err
}
