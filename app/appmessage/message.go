// Package appmessage defines the P2P wire message types:
// handshake, liveness, header-first sync, body backfill, mempool and
// task gossip, solution submission, inventory and rejection. The
// Message/MessageCommand/baseMessage idiom and the tagged-command-constant
// style follow kaspad's wire package; payload shapes are this
// protocol's own.
package appmessage

import "fmt"

// MessageCommand is a number in a message frame's header identifying the
// frame's payload type.
type MessageCommand uint32

func (cmd MessageCommand) String() string {
	name, ok := messageCommandToString[cmd]
	if !ok {
		name = "unknown command"
	}
	return fmt.Sprintf("%s [code %d]", name, uint32(cmd))
}

// Commands used in frame headers
const (
	CmdVersion MessageCommand = iota
	CmdVerAck
	CmdPing
	CmdPong
	CmdHeadersRequest
	CmdHeaders
	CmdBlockRequest
	CmdBlock
	CmdTxAnnounce
	CmdTxRequest
	CmdTx
	CmdTaskAnnounce
	CmdTaskRequest
	CmdTask
	CmdSolutionSubmit
	CmdSolutionAccepted
	CmdSolutionRejected
	CmdInv
	CmdReject
	CmdTemplateRequest
	CmdTemplate
)

var messageCommandToString = map[MessageCommand]string{
	CmdVersion:          "Version",
	CmdVerAck:           "VerAck",
	CmdPing:             "Ping",
	CmdPong:             "Pong",
	CmdHeadersRequest:   "HeadersRequest",
	CmdHeaders:          "Headers",
	CmdBlockRequest:     "BlockRequest",
	CmdBlock:            "Block",
	CmdTxAnnounce:       "TxAnnounce",
	CmdTxRequest:        "TxRequest",
	CmdTx:               "Tx",
	CmdTaskAnnounce:     "TaskAnnounce",
	CmdTaskRequest:      "TaskRequest",
	CmdTask:             "Task",
	CmdSolutionSubmit:   "SolutionSubmit",
	CmdSolutionAccepted: "SolutionAccepted",
	CmdSolutionRejected: "SolutionRejected",
	CmdInv:              "Inv",
	CmdReject:           "Reject",
	CmdTemplateRequest:  "TemplateRequest",
	CmdTemplate:         "Template",
}

// Message is a P2P frame payload: a type with complete control over its own
// representation, self-identifying via Command.
type Message interface {
	Command() MessageCommand
}

// MaxMessagePayload bounds a single frame's length; oversize frames close
// the connection with a protocol-violation reason.
const MaxMessagePayload = 32 * 1024 * 1024

// InventoryKind distinguishes the item kinds an Inv/reject message can
// reference.
type InventoryKind uint8

const (
	InventoryKindBlock InventoryKind = iota
	InventoryKindTransaction
	InventoryKindTask
)
