package codec

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 0xfc, 0xfd, 0xfe, 0xffff, 0x10000, 0xffffffff, 0x100000000, ^uint64(0)}

	for _, want := range tests {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, want); err != nil {
			t.Fatalf("WriteVarInt(%d): unexpected error: %+v", want, err)
		}
		if buf.Len() != VarIntSerializeSize(want) {
			t.Errorf("VarIntSerializeSize(%d): got %d, want %d", want, VarIntSerializeSize(want), buf.Len())
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("ReadVarInt(%d): unexpected error: %+v", want, err)
		}
		if got != want {
			t.Errorf("ReadVarInt: got %d, want %d", got, want)
		}
	}
}

func TestReadVarIntRejectsNonCanonicalEncoding(t *testing.T) {
	// 0xfd discriminant followed by a 2-byte value that fits in a single
	// byte is a non-canonical encoding and must be rejected.
	buf := bytes.NewReader([]byte{0xfd, 0x01, 0x00})
	if _, err := ReadVarInt(buf); err == nil {
		t.Errorf("ReadVarInt: expected error for non-canonical varint, got nil")
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5}

	var buf bytes.Buffer
	if err := WriteVarBytes(&buf, want); err != nil {
		t.Fatalf("WriteVarBytes: unexpected error: %+v", err)
	}
	got, err := ReadVarBytes(&buf, 10)
	if err != nil {
		t.Fatalf("ReadVarBytes: unexpected error: %+v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadVarBytes: got %x, want %x", got, want)
	}
}

func TestReadVarBytesRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVarBytes(&buf, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("WriteVarBytes: unexpected error: %+v", err)
	}
	if _, err := ReadVarBytes(&buf, 4); err == nil {
		t.Errorf("ReadVarBytes: expected error for length exceeding max allowed, got nil")
	}
}
