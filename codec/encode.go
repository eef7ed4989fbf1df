package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// MaxAddressLength bounds address decoding; the protocol only ever produces
// 20 or 32 byte addresses but a decoder must not allocate unboundedly on
// malformed input.
const MaxAddressLength = 32

// MaxPayloadLength bounds a transaction's opaque payload.
const MaxPayloadLength = 16 * 1024

// MaxPublicKeyLength bounds a transaction's embedded sender public key.
const MaxPublicKeyLength = 33

// MaxTensorElementCount bounds a tensor task's input size, per the protocol
// cap referenced in ("protocol cap on tensor element count").
const MaxTensorElementCount = 1 << 20

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func writeHash(w io.Writer, h *externalapi.DomainHash) error {
	if h == nil {
		var zero externalapi.DomainHash
		_, err := w.Write(zero[:])
		return err
	}
	_, err := w.Write(h[:])
	return err
}

func readHash(r io.Reader) (*externalapi.DomainHash, error) {
	var h externalapi.DomainHash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	return &h, nil
}

// EncodeAddress writes a varbytes-prefixed address.
func EncodeAddress(w io.Writer, address externalapi.DomainAddress) error {
	return WriteVarBytes(w, address)
}

// DecodeAddress reads a varbytes-prefixed address.
func DecodeAddress(r io.Reader) (externalapi.DomainAddress, error) {
	b, err := ReadVarBytes(r, MaxAddressLength)
	if err != nil {
		return nil, err
	}
	return externalapi.DomainAddress(b), nil
}

// EncodeTensor writes a tensor's shape (rank then dimensions, as varints)
// followed by its raw elements in row-major order.
func EncodeTensor(w io.Writer, t *externalapi.DomainTensor) error {
	if _, err := w.Write([]byte{byte(t.ElementType)}); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(t.Shape))); err != nil {
		return err
	}
	for _, dim := range t.Shape {
		if err := WriteVarInt(w, dim); err != nil {
			return err
		}
	}
	switch t.ElementType {
	case externalapi.ElementTypeInt32:
		for _, v := range t.IntElements {
			if err := writeUint32(w, uint32(v)); err != nil {
				return err
			}
		}
	case externalapi.ElementTypeFloat32:
		for _, v := range t.FloatElements {
			if err := writeUint32(w, float32ToBits(v)); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("unknown tensor element type %d", t.ElementType)
	}
	return nil
}

// DecodeTensor reads a tensor encoded by EncodeTensor.
func DecodeTensor(r io.Reader) (*externalapi.DomainTensor, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return nil, err
	}
	elementType := externalapi.ElementType(kindBuf[0])

	rank, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	const maxRank = 8
	if rank > maxRank {
		return nil, errors.Errorf("tensor rank %d exceeds max of %d", rank, maxRank)
	}
	shape := make([]uint64, rank)
	count := uint64(1)
	for i := range shape {
		dim, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		shape[i] = dim
		count *= dim
	}
	if count > MaxTensorElementCount {
		return nil, errors.Errorf("tensor element count %d exceeds max of %d", count, MaxTensorElementCount)
	}

	t := &externalapi.DomainTensor{ElementType: elementType, Shape: shape}
	switch elementType {
	case externalapi.ElementTypeInt32:
		t.IntElements = make([]int32, count)
		for i := range t.IntElements {
			v, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			t.IntElements[i] = int32(v)
		}
	case externalapi.ElementTypeFloat32:
		t.FloatElements = make([]float32, count)
		for i := range t.FloatElements {
			v, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			t.FloatElements[i] = bitsToFloat32(v)
		}
	default:
		return nil, errors.Errorf("unknown tensor element type %d", elementType)
	}
	return t, nil
}

// EncodeTransactionBody writes every transaction field preceding the
// signature. This is the canonical preimage whose digest is the
// transaction's identity.
func EncodeTransactionBody(w io.Writer, tx *externalapi.DomainTransaction) error {
	if err := EncodeAddress(w, tx.Sender); err != nil {
		return err
	}
	if err := EncodeAddress(w, tx.Recipient); err != nil {
		return err
	}
	if err := writeUint64(w, tx.Amount); err != nil {
		return err
	}
	if err := writeUint64(w, tx.Fee); err != nil {
		return err
	}
	if err := writeUint64(w, tx.Nonce); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(tx.PayloadKind)}); err != nil {
		return err
	}
	if err := WriteVarBytes(w, tx.Payload); err != nil {
		return err
	}
	return WriteVarBytes(w, tx.SenderPublicKey)
}

// EncodeTransaction writes the full wire encoding of a transaction,
// including its signature.
func EncodeTransaction(w io.Writer, tx *externalapi.DomainTransaction) error {
	if err := EncodeTransactionBody(w, tx); err != nil {
		return err
	}
	return WriteVarBytes(w, tx.Signature)
}

// DecodeTransaction reads a transaction encoded by EncodeTransaction.
func DecodeTransaction(r io.Reader) (*externalapi.DomainTransaction, error) {
	sender, err := DecodeAddress(r)
	if err != nil {
		return nil, err
	}
	recipient, err := DecodeAddress(r)
	if err != nil {
		return nil, err
	}
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	fee, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	nonce, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return nil, err
	}
	payload, err := ReadVarBytes(r, MaxPayloadLength)
	if err != nil {
		return nil, err
	}
	senderPublicKey, err := ReadVarBytes(r, MaxPublicKeyLength)
	if err != nil {
		return nil, err
	}
	signature, err := ReadVarBytes(r, 64)
	if err != nil {
		return nil, err
	}
	tx := &externalapi.DomainTransaction{
		Sender:          sender,
		Recipient:       recipient,
		Amount:          amount,
		Fee:             fee,
		Nonce:           nonce,
		PayloadKind:     externalapi.PayloadKind(kindBuf[0]),
		Payload:         payload,
		SenderPublicKey: senderPublicKey,
		Signature:       signature,
	}
	id := TransactionID(tx)
	tx.ID = &id
	return tx, nil
}

// TransactionID returns the digest identifying tx: the hash of every field
// preceding the signature.
func TransactionID(tx *externalapi.DomainTransaction) externalapi.DomainTransactionID {
	hash := hashEncoded(func(buf *bytes.Buffer) error {
		return EncodeTransactionBody(buf, tx)
	})
	return externalapi.DomainTransactionID(hash)
}

// EncodeHeader writes a block header's canonical preimage: every header
// field in fixed order, Nonce included (Height is excluded; it is
// derived and not part of header identity).
func EncodeHeader(w io.Writer, header *externalapi.DomainBlockHeader) error {
	if err := writeHash(w, header.ParentHash); err != nil {
		return err
	}
	if err := writeHash(w, header.MerkleRoot); err != nil {
		return err
	}
	if err := writeHash(w, header.TaskBindingDigest); err != nil {
		return err
	}
	if err := writeInt64(w, header.Timestamp); err != nil {
		return err
	}
	if err := writeUint32(w, header.Bits); err != nil {
		return err
	}
	return writeUint64(w, header.Nonce)
}

// DecodeHeader reads a header encoded by EncodeHeader. Height is left 0; the
// caller must set it once the parent is resolved.
func DecodeHeader(r io.Reader) (*externalapi.DomainBlockHeader, error) {
	parentHash, err := readHash(r)
	if err != nil {
		return nil, err
	}
	merkleRoot, err := readHash(r)
	if err != nil {
		return nil, err
	}
	taskBindingDigest, err := readHash(r)
	if err != nil {
		return nil, err
	}
	timestamp, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	bits, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	nonce, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &externalapi.DomainBlockHeader{
		ParentHash:        parentHash,
		MerkleRoot:        merkleRoot,
		TaskBindingDigest: taskBindingDigest,
		Timestamp:         timestamp,
		Bits:              bits,
		Nonce:             nonce,
	}, nil
}

// HeaderHash returns the digest identifying header: the 32-byte hash of its
// canonical preimage. This is the value compared against the difficulty
// target.
func HeaderHash(header *externalapi.DomainBlockHeader) *externalapi.DomainHash {
	hash := hashEncoded(func(buf *bytes.Buffer) error {
		return EncodeHeader(buf, header)
	})
	return &hash
}

// EncodeTaskCreation writes the canonical preimage of a task's creation
// record: creator, operation kind, input tensor, difficulty reduction,
// reward amount and deadline height. Two identical creations hash to the
// same task ID by construction.
func EncodeTaskCreation(w io.Writer, task *externalapi.DomainTensorTask) error {
	if err := EncodeAddress(w, task.Creator); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(task.OperationKind)}); err != nil {
		return err
	}
	if err := EncodeTensor(w, task.InputTensor); err != nil {
		return err
	}
	if err := writeUint64(w, task.DifficultyReductionNumerator); err != nil {
		return err
	}
	if err := writeUint64(w, task.RewardAmount); err != nil {
		return err
	}
	return writeUint64(w, task.DeadlineHeight)
}

// TaskID returns the digest identifying task's creation record.
func TaskID(task *externalapi.DomainTensorTask) externalapi.DomainTaskID {
	hash := hashEncoded(func(buf *bytes.Buffer) error {
		return EncodeTaskCreation(buf, task)
	})
	return externalapi.DomainTaskID(hash)
}

// EncodeClaim writes a task solution claim's canonical preimage: the task
// ID, miner, output digest and claim nonce. The output tensor itself is
// never part of the committed digest - only its hash - so claims stay
// small regardless of tensor size.
func EncodeClaim(w io.Writer, claim *externalapi.DomainTaskClaim) error {
	if err := writeHash(w, (*externalapi.DomainHash)(claim.TaskID)); err != nil {
		return err
	}
	if err := EncodeAddress(w, claim.Miner); err != nil {
		return err
	}
	if err := writeHash(w, claim.OutputHash); err != nil {
		return err
	}
	return writeUint64(w, claim.ClaimNonce)
}

// ClaimDigest returns the Merkle-leaf digest of claim.
func ClaimDigest(claim *externalapi.DomainTaskClaim) externalapi.DomainHash {
	return hashEncoded(func(buf *bytes.Buffer) error {
		return EncodeClaim(buf, claim)
	})
}

// EncodeClaimFull writes a claim's full storage record: the canonical
// claim preimage followed by the output tensor itself, which a task
// store keeps around so VerifyClaim can be re-run without asking a peer
// to resend it.
func EncodeClaimFull(w io.Writer, claim *externalapi.DomainTaskClaim) error {
	if err := EncodeClaim(w, claim); err != nil {
		return err
	}
	return EncodeTensor(w, claim.Output)
}

// DecodeClaimFull reads a claim encoded by EncodeClaimFull.
func DecodeClaimFull(r io.Reader) (*externalapi.DomainTaskClaim, error) {
	taskID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	miner, err := DecodeAddress(r)
	if err != nil {
		return nil, err
	}
	outputHash, err := readHash(r)
	if err != nil {
		return nil, err
	}
	claimNonce, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	output, err := DecodeTensor(r)
	if err != nil {
		return nil, err
	}
	return &externalapi.DomainTaskClaim{
		TaskID:     (*externalapi.DomainTaskID)(taskID),
		Miner:      miner,
		Output:     output,
		OutputHash: outputHash,
		ClaimNonce: claimNonce,
	}, nil
}

// EncodeTaskSubmissionPayload writes the body of a task-submission
// transaction's payload: everything CreateTask needs beyond the creator,
// which is taken from the transaction's sender. ExpectedOutputHash is
// optional and prefixed with a presence byte.
func EncodeTaskSubmissionPayload(w io.Writer, task *externalapi.DomainTensorTask) error {
	if _, err := w.Write([]byte{byte(task.OperationKind)}); err != nil {
		return err
	}
	if err := EncodeTensor(w, task.InputTensor); err != nil {
		return err
	}
	if task.ExpectedOutputHash != nil {
		if _, err := w.Write([]byte{1}); err != nil {
			return err
		}
		if err := writeHash(w, task.ExpectedOutputHash); err != nil {
			return err
		}
	} else if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if err := writeUint64(w, task.DifficultyReductionNumerator); err != nil {
		return err
	}
	if err := writeUint64(w, task.RewardAmount); err != nil {
		return err
	}
	return writeUint64(w, task.DeadlineHeight)
}

// DecodeTaskSubmissionPayload reads a payload written by
// EncodeTaskSubmissionPayload. The caller fills in Creator from the
// transaction's sender before deriving the task's ID.
func DecodeTaskSubmissionPayload(r io.Reader) (*externalapi.DomainTensorTask, error) {
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return nil, err
	}
	inputTensor, err := DecodeTensor(r)
	if err != nil {
		return nil, err
	}
	var hasHash [1]byte
	if _, err := io.ReadFull(r, hasHash[:]); err != nil {
		return nil, err
	}
	var expectedOutputHash *externalapi.DomainHash
	if hasHash[0] != 0 {
		expectedOutputHash, err = readHash(r)
		if err != nil {
			return nil, err
		}
	}
	reductionNumerator, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	rewardAmount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	deadlineHeight, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &externalapi.DomainTensorTask{
		OperationKind:                externalapi.OperationKind(kindBuf[0]),
		InputTensor:                  inputTensor,
		ExpectedOutputHash:           expectedOutputHash,
		DifficultyReductionNumerator: reductionNumerator,
		RewardAmount:                 rewardAmount,
		DeadlineHeight:               deadlineHeight,
	}, nil
}

// EncodeTask writes a task's full storage record: its creation preimage
// followed by its current lifecycle state.
func EncodeTask(w io.Writer, task *externalapi.DomainTensorTask) error {
	if err := EncodeTaskCreation(w, task); err != nil {
		return err
	}
	_, err := w.Write([]byte{byte(task.State)})
	return err
}

// DecodeTask reads a task encoded by EncodeTask.
func DecodeTask(r io.Reader) (*externalapi.DomainTensorTask, error) {
	creator, err := DecodeAddress(r)
	if err != nil {
		return nil, err
	}
	var kindBuf [1]byte
	if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
		return nil, err
	}
	inputTensor, err := DecodeTensor(r)
	if err != nil {
		return nil, err
	}
	reductionNumerator, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	rewardAmount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	deadlineHeight, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	var stateBuf [1]byte
	if _, err := io.ReadFull(r, stateBuf[:]); err != nil {
		return nil, err
	}
	task := &externalapi.DomainTensorTask{
		Creator:                      creator,
		OperationKind:                externalapi.OperationKind(kindBuf[0]),
		InputTensor:                  inputTensor,
		DifficultyReductionNumerator: reductionNumerator,
		RewardAmount:                 rewardAmount,
		DeadlineHeight:               deadlineHeight,
		State:                        externalapi.TaskState(stateBuf[0]),
	}
	id := TaskID(task)
	task.TaskID = &id
	return task, nil
}

// EncodeBlock writes a block's full wire/storage encoding: its header,
// varint-prefixed transaction list, and varint-prefixed claim list.
func EncodeBlock(block *externalapi.DomainBlock) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeHeader(&buf, block.Header); err != nil {
		return nil, err
	}
	if err := writeUint64(&buf, block.Header.Height); err != nil {
		return nil, err
	}
	if err := WriteVarInt(&buf, uint64(len(block.Transactions))); err != nil {
		return nil, err
	}
	for _, tx := range block.Transactions {
		if err := EncodeTransaction(&buf, tx); err != nil {
			return nil, err
		}
	}
	if err := WriteVarInt(&buf, uint64(len(block.Claims))); err != nil {
		return nil, err
	}
	for _, claim := range block.Claims {
		if err := EncodeClaimFull(&buf, claim); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeBlock reads a block encoded by EncodeBlock.
func DecodeBlock(data []byte) (*externalapi.DomainBlock, error) {
	r := bytes.NewReader(data)
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	height, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	header.Height = height

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	const maxTxCount = 1 << 20
	if txCount > maxTxCount {
		return nil, errors.Errorf("block transaction count %d exceeds max of %d", txCount, maxTxCount)
	}
	transactions := make([]*externalapi.DomainTransaction, txCount)
	for i := range transactions {
		tx, err := DecodeTransaction(r)
		if err != nil {
			return nil, err
		}
		transactions[i] = tx
	}

	claimCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if claimCount > maxTxCount {
		return nil, errors.Errorf("block claim count %d exceeds max of %d", claimCount, maxTxCount)
	}
	claims := make([]*externalapi.DomainTaskClaim, claimCount)
	for i := range claims {
		claim, err := DecodeClaimFull(r)
		if err != nil {
			return nil, err
		}
		claims[i] = claim
	}

	return &externalapi.DomainBlock{Header: header, Transactions: transactions, Claims: claims}, nil
}
