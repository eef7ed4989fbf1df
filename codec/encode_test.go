package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func sampleAddress(b byte) externalapi.DomainAddress {
	addr := make(externalapi.DomainAddress, 20)
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func sampleHash(b byte) *externalapi.DomainHash {
	var h externalapi.DomainHash
	for i := range h {
		h[i] = b
	}
	return &h
}

func TestEncodeDecodeAddress(t *testing.T) {
	want := sampleAddress(0x11)

	var buf bytes.Buffer
	if err := EncodeAddress(&buf, want); err != nil {
		t.Fatalf("EncodeAddress: unexpected error: %+v", err)
	}
	got, err := DecodeAddress(&buf)
	if err != nil {
		t.Fatalf("DecodeAddress: unexpected error: %+v", err)
	}
	if !got.Equal(want) {
		t.Errorf("DecodeAddress: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEncodeDecodeTensorInt32(t *testing.T) {
	want := &externalapi.DomainTensor{
		ElementType: externalapi.ElementTypeInt32,
		Shape:       []uint64{2, 2},
		IntElements: []int32{1, -2, 3, -4},
	}

	var buf bytes.Buffer
	if err := EncodeTensor(&buf, want); err != nil {
		t.Fatalf("EncodeTensor: unexpected error: %+v", err)
	}
	got, err := DecodeTensor(&buf)
	if err != nil {
		t.Fatalf("DecodeTensor: unexpected error: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeTensor: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEncodeDecodeTensorFloat32(t *testing.T) {
	want := &externalapi.DomainTensor{
		ElementType:   externalapi.ElementTypeFloat32,
		Shape:         []uint64{3},
		FloatElements: []float32{1.5, -2.25, 0},
	}

	var buf bytes.Buffer
	if err := EncodeTensor(&buf, want); err != nil {
		t.Fatalf("EncodeTensor: unexpected error: %+v", err)
	}
	got, err := DecodeTensor(&buf)
	if err != nil {
		t.Fatalf("DecodeTensor: unexpected error: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeTensor: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestDecodeTensorRejectsOversizedRank(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(externalapi.ElementTypeInt32))
	if err := WriteVarInt(&buf, 9); err != nil {
		t.Fatalf("WriteVarInt: unexpected error: %+v", err)
	}
	if _, err := DecodeTensor(&buf); err == nil {
		t.Errorf("DecodeTensor: expected error for rank exceeding max, got nil")
	}
}

func sampleTransaction() *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Sender:          sampleAddress(0x01),
		Recipient:       sampleAddress(0x02),
		Amount:          100,
		Fee:             1,
		Nonce:           7,
		PayloadKind:     externalapi.PayloadKindPlainTransfer,
		Payload:         []byte{},
		SenderPublicKey: []byte{0x03, 0x04, 0x05},
		Signature:       bytes.Repeat([]byte{0x06}, 64),
	}
}

func TestEncodeDecodeTransaction(t *testing.T) {
	want := sampleTransaction()

	var buf bytes.Buffer
	if err := EncodeTransaction(&buf, want); err != nil {
		t.Fatalf("EncodeTransaction: unexpected error: %+v", err)
	}
	got, err := DecodeTransaction(&buf)
	if err != nil {
		t.Fatalf("DecodeTransaction: unexpected error: %+v", err)
	}

	want.ID = got.ID
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeTransaction: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestTransactionIDIgnoresSignature(t *testing.T) {
	tx := sampleTransaction()
	before := TransactionID(tx)

	tx.Signature = bytes.Repeat([]byte{0xff}, 64)
	after := TransactionID(tx)

	if before != after {
		t.Errorf("TransactionID: changing the signature changed the ID - got %v, want %v", after, before)
	}
}

func TestTransactionIDChangesWithBody(t *testing.T) {
	tx := sampleTransaction()
	before := TransactionID(tx)

	tx.Amount++
	after := TransactionID(tx)

	if before == after {
		t.Errorf("TransactionID: changing the amount did not change the ID - got %v", after)
	}
}

func sampleHeader() *externalapi.DomainBlockHeader {
	return &externalapi.DomainBlockHeader{
		ParentHash:        sampleHash(0xaa),
		MerkleRoot:        sampleHash(0xbb),
		TaskBindingDigest: sampleHash(0xcc),
		Timestamp:         1700000000,
		Bits:              0x1d00ffff,
		Nonce:             424242,
	}
}

func TestEncodeDecodeHeader(t *testing.T) {
	want := sampleHeader()

	var buf bytes.Buffer
	if err := EncodeHeader(&buf, want); err != nil {
		t.Fatalf("EncodeHeader: unexpected error: %+v", err)
	}
	got, err := DecodeHeader(&buf)
	if err != nil {
		t.Fatalf("DecodeHeader: unexpected error: %+v", err)
	}

	// Height is not part of the wire preimage; DecodeHeader leaves it 0.
	want.Height = 0
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeHeader: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestHeaderHashIgnoresHeight(t *testing.T) {
	a := sampleHeader()
	a.Height = 1
	b := sampleHeader()
	b.Height = 2

	if *HeaderHash(a) != *HeaderHash(b) {
		t.Errorf("HeaderHash: differing Height produced different hashes")
	}
}

func TestHeaderHashChangesWithNonce(t *testing.T) {
	a := sampleHeader()
	b := sampleHeader()
	b.Nonce++

	if *HeaderHash(a) == *HeaderHash(b) {
		t.Errorf("HeaderHash: differing Nonce produced the same hash")
	}
}

func sampleTask() *externalapi.DomainTensorTask {
	return &externalapi.DomainTensorTask{
		Creator:       sampleAddress(0x21),
		OperationKind: externalapi.OperationKindMatrixMultiply,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{2, 2},
			IntElements: []int32{1, 2, 3, 4},
		},
		DifficultyReductionNumerator: 1000,
		RewardAmount:                 500,
		DeadlineHeight:               100,
		State:                        externalapi.TaskStateOpen,
	}
}

func TestEncodeDecodeTask(t *testing.T) {
	want := sampleTask()

	var buf bytes.Buffer
	if err := EncodeTask(&buf, want); err != nil {
		t.Fatalf("EncodeTask: unexpected error: %+v", err)
	}
	got, err := DecodeTask(&buf)
	if err != nil {
		t.Fatalf("DecodeTask: unexpected error: %+v", err)
	}

	want.TaskID = got.TaskID
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeTask: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestTaskIDStableAcrossState(t *testing.T) {
	task := sampleTask()
	open := TaskID(task)

	task.State = externalapi.TaskStateFinalized
	finalized := TaskID(task)

	if open != finalized {
		t.Errorf("TaskID: changing State changed the ID - got %v, want %v", finalized, open)
	}
}

func sampleClaim() *externalapi.DomainTaskClaim {
	taskID := externalapi.DomainTaskID(*sampleHash(0x33))
	return &externalapi.DomainTaskClaim{
		TaskID: &taskID,
		Miner:  sampleAddress(0x44),
		Output: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{1},
			IntElements: []int32{42},
		},
		OutputHash: sampleHash(0x55),
		ClaimNonce: 9,
	}
}

func TestEncodeDecodeClaimFull(t *testing.T) {
	want := sampleClaim()

	var buf bytes.Buffer
	if err := EncodeClaimFull(&buf, want); err != nil {
		t.Fatalf("EncodeClaimFull: unexpected error: %+v", err)
	}
	got, err := DecodeClaimFull(&buf)
	if err != nil {
		t.Fatalf("DecodeClaimFull: unexpected error: %+v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeClaimFull: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestClaimDigestIgnoresOutputTensor(t *testing.T) {
	claim := sampleClaim()
	before := ClaimDigest(claim)

	claim.Output.IntElements[0] = 99
	after := ClaimDigest(claim)

	if before != after {
		t.Errorf("ClaimDigest: changing the output tensor changed the digest - got %v, want %v", after, before)
	}
}

func TestEncodeDecodeBlock(t *testing.T) {
	header := sampleHeader()
	header.Height = 12

	want := &externalapi.DomainBlock{
		Header:       header,
		Transactions: []*externalapi.DomainTransaction{sampleTransaction()},
		Claims:       []*externalapi.DomainTaskClaim{sampleClaim()},
	}

	encoded, err := EncodeBlock(want)
	if err != nil {
		t.Fatalf("EncodeBlock: unexpected error: %+v", err)
	}
	got, err := DecodeBlock(encoded)
	if err != nil {
		t.Fatalf("DecodeBlock: unexpected error: %+v", err)
	}

	want.Transactions[0].ID = got.Transactions[0].ID
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeBlock: got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestDecodeBlockRejectsOversizedTransactionCount(t *testing.T) {
	header := sampleHeader()
	var buf bytes.Buffer
	if err := EncodeHeader(&buf, header); err != nil {
		t.Fatalf("EncodeHeader: unexpected error: %+v", err)
	}
	if err := writeUint64(&buf, header.Height); err != nil {
		t.Fatalf("writeUint64: unexpected error: %+v", err)
	}
	if err := WriteVarInt(&buf, 1<<21); err != nil {
		t.Fatalf("WriteVarInt: unexpected error: %+v", err)
	}
	if _, err := DecodeBlock(buf.Bytes()); err == nil {
		t.Errorf("DecodeBlock: expected error for oversized transaction count, got nil")
	}
}
