package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// MaxFrameLength bounds a single length-prefixed frame, matching
// appmessage.MaxMessagePayload plus room for the command tag.
const MaxFrameLength = appmessage.MaxMessagePayload + 16

// EncodeMessage writes msg as a length-prefixed frame: a 4-byte
// little-endian payload length, a 4-byte command tag, then the payload
// itself in the per-command encoding below. This is the transport-level
// framing every P2P connection reads and writes; it is independent of the
// canonical consensus encodings in encode.go, which govern what digests
// are computed over, not how bytes move on the wire.
func EncodeMessage(w io.Writer, msg appmessage.Message) error {
	var payload bytes.Buffer
	if err := encodePayload(&payload, msg); err != nil {
		return errors.Wrapf(err, "failed to encode %s payload", msg.Command())
	}
	if payload.Len() > appmessage.MaxMessagePayload {
		return errors.Errorf("%s payload of %d bytes exceeds the maximum of %d", msg.Command(), payload.Len(), appmessage.MaxMessagePayload)
	}

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(payload.Len()))
	binary.LittleEndian.PutUint32(header[4:8], uint32(msg.Command()))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// DecodeMessage reads a frame written by EncodeMessage.
func DecodeMessage(r io.Reader) (appmessage.Message, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[0:4])
	if length > MaxFrameLength {
		return nil, errors.Errorf("frame length %d exceeds the maximum of %d", length, MaxFrameLength)
	}
	command := appmessage.MessageCommand(binary.LittleEndian.Uint32(header[4:8]))

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return decodePayload(command, bytes.NewReader(payload))
}

func encodePayload(w io.Writer, msg appmessage.Message) error {
	switch m := msg.(type) {
	case *appmessage.VersionMessage:
		if err := writeUint32(w, m.ProtocolVersion); err != nil {
			return err
		}
		if err := writeUint32(w, m.NetworkID); err != nil {
			return err
		}
		if err := writeHash(w, m.TipHash); err != nil {
			return err
		}
		if err := writeUint64(w, m.TipHeight); err != nil {
			return err
		}
		if err := writeString(w, m.UserAgent); err != nil {
			return err
		}
		return writeUint64(w, m.ServicesBitmask)

	case *appmessage.VerAckMessage:
		return nil

	case *appmessage.PingMessage:
		return writeUint64(w, m.Nonce)

	case *appmessage.PongMessage:
		return writeUint64(w, m.Nonce)

	case *appmessage.HeadersRequestMessage:
		if err := WriteVarInt(w, uint64(len(m.Locator))); err != nil {
			return err
		}
		for _, hash := range m.Locator {
			if err := writeHash(w, hash); err != nil {
				return err
			}
		}
		return writeHash(w, m.StopHash)

	case *appmessage.HeadersMessage:
		if err := WriteVarInt(w, uint64(len(m.Headers))); err != nil {
			return err
		}
		for _, header := range m.Headers {
			if err := EncodeHeader(w, header); err != nil {
				return err
			}
			if err := writeUint64(w, header.Height); err != nil {
				return err
			}
		}
		return nil

	case *appmessage.BlockRequestMessage:
		return writeHash(w, m.Hash)

	case *appmessage.BlockMessage:
		data, err := EncodeBlock(m.Block)
		if err != nil {
			return err
		}
		return writeBytes(w, data)

	case *appmessage.TxAnnounceMessage:
		return writeHash(w, m.TransactionID)

	case *appmessage.TxRequestMessage:
		return writeHash(w, m.TransactionID)

	case *appmessage.TxMessage:
		return EncodeTransaction(w, m.Transaction)

	case *appmessage.TaskAnnounceMessage:
		return writeHash(w, (*externalapi.DomainHash)(m.TaskID))

	case *appmessage.TaskRequestMessage:
		return writeHash(w, (*externalapi.DomainHash)(m.TaskID))

	case *appmessage.TaskMessage:
		return EncodeTask(w, m.Task)

	case *appmessage.SolutionSubmitMessage:
		return EncodeClaimFull(w, m.Claim)

	case *appmessage.SolutionAcceptedMessage:
		if err := writeHash(w, (*externalapi.DomainHash)(m.TaskID)); err != nil {
			return err
		}
		return EncodeAddress(w, m.Miner)

	case *appmessage.SolutionRejectedMessage:
		if err := writeHash(w, (*externalapi.DomainHash)(m.TaskID)); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(m.Reason)})
		return err

	case *appmessage.InvMessage:
		if err := WriteVarInt(w, uint64(len(m.Vectors))); err != nil {
			return err
		}
		for _, vec := range m.Vectors {
			if _, err := w.Write([]byte{byte(vec.Kind)}); err != nil {
				return err
			}
			if err := writeHash(w, vec.Hash); err != nil {
				return err
			}
		}
		return nil

	case *appmessage.RejectMessage:
		if err := writeUint32(w, uint32(m.Rejected)); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(m.Reason)}); err != nil {
			return err
		}
		if err := writeString(w, m.Message); err != nil {
			return err
		}
		if m.Ref != nil {
			if _, err := w.Write([]byte{1}); err != nil {
				return err
			}
			return writeHash(w, m.Ref)
		}
		_, err := w.Write([]byte{0})
		return err

	case *appmessage.TemplateRequestMessage:
		return EncodeAddress(w, m.MinerAddress)

	case *appmessage.TemplateMessage:
		if err := writeHash(w, m.ParentHash); err != nil {
			return err
		}
		if err := writeUint64(w, m.Height); err != nil {
			return err
		}
		if err := writeInt64(w, m.Timestamp); err != nil {
			return err
		}
		if err := writeUint32(w, m.Bits); err != nil {
			return err
		}
		if err := writeHash(w, m.MerkleRoot); err != nil {
			return err
		}
		if err := writeHash(w, m.TaskBindingDigest); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(m.Transactions))); err != nil {
			return err
		}
		for _, tx := range m.Transactions {
			if err := EncodeTransaction(w, tx); err != nil {
				return err
			}
		}
		if err := WriteVarInt(w, uint64(len(m.Claims))); err != nil {
			return err
		}
		for _, claim := range m.Claims {
			if err := EncodeClaimFull(w, claim); err != nil {
				return err
			}
		}
		if err := writeUint64(w, m.ReductionNumerator); err != nil {
			return err
		}
		return writeUint64(w, m.ReductionDenominator)

	default:
		return errors.Errorf("unknown message type %T", msg)
	}
}

func decodePayload(command appmessage.MessageCommand, r io.Reader) (appmessage.Message, error) {
	switch command {
	case appmessage.CmdVersion:
		protocolVersion, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		networkID, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		tipHash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		tipHeight, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		userAgent, err := readString(r)
		if err != nil {
			return nil, err
		}
		services, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewVersionMessage(protocolVersion, networkID, tipHash, tipHeight, userAgent, services), nil

	case appmessage.CmdVerAck:
		return appmessage.NewVerAckMessage(), nil

	case appmessage.CmdPing:
		nonce, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewPingMessage(nonce), nil

	case appmessage.CmdPong:
		nonce, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewPongMessage(nonce), nil

	case appmessage.CmdHeadersRequest:
		count, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		locator := make([]*externalapi.DomainHash, count)
		for i := range locator {
			locator[i], err = readHash(r)
			if err != nil {
				return nil, err
			}
		}
		stopHash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewHeadersRequestMessage(locator, stopHash), nil

	case appmessage.CmdHeaders:
		count, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		headers := make([]*externalapi.DomainBlockHeader, count)
		for i := range headers {
			header, err := DecodeHeader(r)
			if err != nil {
				return nil, err
			}
			height, err := readUint64(r)
			if err != nil {
				return nil, err
			}
			header.Height = height
			headers[i] = header
		}
		return appmessage.NewHeadersMessage(headers), nil

	case appmessage.CmdBlockRequest:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewBlockRequestMessage(hash), nil

	case appmessage.CmdBlock:
		data, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		block, err := DecodeBlock(data)
		if err != nil {
			return nil, err
		}
		return appmessage.NewBlockMessage(block), nil

	case appmessage.CmdTxAnnounce:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTxAnnounceMessage(hash), nil

	case appmessage.CmdTxRequest:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTxRequestMessage(hash), nil

	case appmessage.CmdTx:
		tx, err := DecodeTransaction(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTxMessage(tx), nil

	case appmessage.CmdTaskAnnounce:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTaskAnnounceMessage((*externalapi.DomainTaskID)(hash)), nil

	case appmessage.CmdTaskRequest:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTaskRequestMessage((*externalapi.DomainTaskID)(hash)), nil

	case appmessage.CmdTask:
		task, err := DecodeTask(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTaskMessage(task), nil

	case appmessage.CmdSolutionSubmit:
		claim, err := DecodeClaimFull(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewSolutionSubmitMessage(claim), nil

	case appmessage.CmdSolutionAccepted:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		miner, err := DecodeAddress(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewSolutionAcceptedMessage((*externalapi.DomainTaskID)(hash), miner), nil

	case appmessage.CmdSolutionRejected:
		hash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		var reasonBuf [1]byte
		if _, err := io.ReadFull(r, reasonBuf[:]); err != nil {
			return nil, err
		}
		return appmessage.NewSolutionRejectedMessage((*externalapi.DomainTaskID)(hash), appmessage.SolutionRejectReason(reasonBuf[0])), nil

	case appmessage.CmdInv:
		count, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		vectors := make([]*appmessage.InvVector, count)
		for i := range vectors {
			var kindBuf [1]byte
			if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
				return nil, err
			}
			hash, err := readHash(r)
			if err != nil {
				return nil, err
			}
			vectors[i] = &appmessage.InvVector{Kind: appmessage.InventoryKind(kindBuf[0]), Hash: hash}
		}
		return appmessage.NewInvMessage(vectors), nil

	case appmessage.CmdReject:
		rejected, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		var reasonBuf [1]byte
		if _, err := io.ReadFull(r, reasonBuf[:]); err != nil {
			return nil, err
		}
		message, err := readString(r)
		if err != nil {
			return nil, err
		}
		var hasRef [1]byte
		if _, err := io.ReadFull(r, hasRef[:]); err != nil {
			return nil, err
		}
		var ref *externalapi.DomainHash
		if hasRef[0] != 0 {
			ref, err = readHash(r)
			if err != nil {
				return nil, err
			}
		}
		return appmessage.NewRejectMessage(appmessage.MessageCommand(rejected), appmessage.RejectReason(reasonBuf[0]), message, ref), nil

	case appmessage.CmdTemplateRequest:
		address, err := DecodeAddress(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTemplateRequestMessage(address), nil

	case appmessage.CmdTemplate:
		parentHash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		height, err := readUint64(r)
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
		merkleRoot, err := readHash(r)
		if err != nil {
			return nil, err
		}
		taskBindingDigest, err := readHash(r)
		if err != nil {
			return nil, err
		}
		txCount, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		transactions := make([]*externalapi.DomainTransaction, txCount)
		for i := range transactions {
			transactions[i], err = DecodeTransaction(r)
			if err != nil {
				return nil, err
			}
		}
		claimCount, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		claims := make([]*externalapi.DomainTaskClaim, claimCount)
		for i := range claims {
			claims[i], err = DecodeClaimFull(r)
			if err != nil {
				return nil, err
			}
		}
		reductionNumerator, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		reductionDenominator, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return appmessage.NewTemplateMessage(parentHash, height, timestamp, bits, merkleRoot, taskBindingDigest,
			transactions, claims, reductionNumerator, reductionDenominator), nil

	default:
		return nil, errors.Errorf("unknown message command %s", command)
	}
}

func writeString(w io.Writer, s string) error {
	if err := WriteVarInt(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	const maxStringLength = 1 << 16
	if length > maxStringLength {
		return "", errors.Errorf("string length %d exceeds the maximum of %d", length, maxStringLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if length > MaxFrameLength {
		return nil, errors.Errorf("byte blob length %d exceeds the maximum of %d", length, MaxFrameLength)
	}
	buf := make([]byte, length)
	_, err = io.ReadFull(r, buf)
	return buf, err
}
