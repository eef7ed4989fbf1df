package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func roundTripMessage(t *testing.T, msg appmessage.Message) appmessage.Message {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeMessage(&buf, msg); err != nil {
		t.Fatalf("EncodeMessage(%s): unexpected error: %+v", msg.Command(), err)
	}
	got, err := DecodeMessage(&buf)
	if err != nil {
		t.Fatalf("DecodeMessage(%s): unexpected error: %+v", msg.Command(), err)
	}
	if got.Command() != msg.Command() {
		t.Errorf("DecodeMessage: got command %v, want %v", got.Command(), msg.Command())
	}
	return got
}

func TestEncodeDecodePingPong(t *testing.T) {
	got := roundTripMessage(t, appmessage.NewPingMessage(1234))
	want := appmessage.NewPingMessage(1234)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeMessage(ping): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}

	got = roundTripMessage(t, appmessage.NewPongMessage(5678))
	want2 := appmessage.NewPongMessage(5678)
	if !reflect.DeepEqual(got, want2) {
		t.Errorf("DecodeMessage(pong): got %v, want %v", spew.Sdump(got), spew.Sdump(want2))
	}
}

func TestEncodeDecodeVersion(t *testing.T) {
	tipHash := sampleHash(0x01)
	want := appmessage.NewVersionMessage(1, 0xbeef, tipHash, 99, "tensorchain:0.1.0", 1)

	got := roundTripMessage(t, want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeMessage(version): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEncodeDecodeVerAck(t *testing.T) {
	roundTripMessage(t, appmessage.NewVerAckMessage())
}

func TestEncodeDecodeBlockMessage(t *testing.T) {
	header := sampleHeader()
	header.Height = 3
	block := &externalapi.DomainBlock{
		Header:       header,
		Transactions: []*externalapi.DomainTransaction{sampleTransaction()},
		Claims:       []*externalapi.DomainTaskClaim{sampleClaim()},
	}

	want := appmessage.NewBlockMessage(block)
	got := roundTripMessage(t, want).(*appmessage.BlockMessage)

	want.Block.Transactions[0].ID = got.Block.Transactions[0].ID
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeMessage(block): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEncodeDecodeInv(t *testing.T) {
	want := appmessage.NewInvMessage([]*appmessage.InvVector{
		{Kind: appmessage.InventoryKindBlock, Hash: sampleHash(0x01)},
		{Kind: appmessage.InventoryKindTransaction, Hash: sampleHash(0x02)},
	})

	got := roundTripMessage(t, want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeMessage(inv): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEncodeDecodeReject(t *testing.T) {
	want := appmessage.NewRejectMessage(appmessage.CmdTx, appmessage.RejectInvalid, "bad nonce", sampleHash(0x03))
	got := roundTripMessage(t, want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeMessage(reject): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}

	wantNoRef := appmessage.NewRejectMessage(appmessage.CmdTx, appmessage.RejectInvalid, "bad nonce", nil)
	gotNoRef := roundTripMessage(t, wantNoRef)
	if !reflect.DeepEqual(gotNoRef, wantNoRef) {
		t.Errorf("DecodeMessage(reject, no ref): got %v, want %v", spew.Sdump(gotNoRef), spew.Sdump(wantNoRef))
	}
}

func TestDecodeMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, MaxFrameLength+1); err != nil {
		t.Fatalf("writeUint32: unexpected error: %+v", err)
	}
	if err := writeUint32(&buf, uint32(appmessage.CmdPing)); err != nil {
		t.Fatalf("writeUint32: unexpected error: %+v", err)
	}
	if _, err := DecodeMessage(&buf); err == nil {
		t.Errorf("DecodeMessage: expected error for oversized frame length, got nil")
	}
}
