package database

// Key prefixes, one per column family. Each
// prefix plus its suffix (digest, height, sender, address) forms the full
// key stored in the underlying key-value engine.
const (
	prefixBlock       = "B/"
	prefixHeightIndex = "H/"
	prefixHeader      = "T/"
	prefixStateCheck  = "S/"
	prefixTask        = "K/"
	prefixNonce       = "N/"
	prefixBalance     = "A/"
	prefixMempool     = "M/"
	prefixBlockStatus = "V/"
	prefixWork        = "W/"
)

// tipKey is the single key holding the active tip digest.
const tipKey = "tip"

func concatKey(prefix string, suffix []byte) []byte {
	key := make([]byte, len(prefix)+len(suffix))
	copy(key, prefix)
	copy(key[len(prefix):], suffix)
	return key
}

// BlockKey returns the B/<digest> key for a block's full bytes.
func BlockKey(digest []byte) []byte { return concatKey(prefixBlock, digest) }

// HeightIndexKey returns the H/<height> key mapping a height to the active
// chain's digest at that height.
func HeightIndexKey(height uint64) []byte { return concatKey(prefixHeightIndex, encodeHeight(height)) }

// HeaderKey returns the T/<digest> key for a header-only record.
func HeaderKey(digest []byte) []byte { return concatKey(prefixHeader, digest) }

// StateCheckpointKey returns the S/<digest> key for a serialized chain
// state checkpoint taken at that block.
func StateCheckpointKey(digest []byte) []byte { return concatKey(prefixStateCheck, digest) }

// TaskKey returns the K/<task_id> key for a task record.
func TaskKey(taskID []byte) []byte { return concatKey(prefixTask, taskID) }

// NonceKey returns the N/<sender> key for a sender's latest confirmed nonce.
func NonceKey(sender []byte) []byte { return concatKey(prefixNonce, sender) }

// BalanceKey returns the A/<address> key for an address's confirmed balance.
func BalanceKey(address []byte) []byte { return concatKey(prefixBalance, address) }

// MempoolEntryKey returns the M/<digest> key for a flushed mempool entry.
func MempoolEntryKey(digest []byte) []byte { return concatKey(prefixMempool, digest) }

// BlockStatusKey returns the V/<digest> key for a block's validity status.
func BlockStatusKey(digest []byte) []byte { return concatKey(prefixBlockStatus, digest) }

// WorkKey returns the W/<digest> key for a block's cumulative chain work,
// the fork-choice metric: highest cumulative work wins, not
// height.
func WorkKey(digest []byte) []byte { return concatKey(prefixWork, digest) }

// TipKey returns the singleton key holding the active tip digest.
func TipKey() []byte { return []byte(tipKey) }

func encodeHeight(height uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(height >> (8 * i))
	}
	return buf
}
