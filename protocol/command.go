package protocol

import "encoding/json"

// CommandType defines the type of the command (using uint8 for memory alignment and performance)
type CommandType uint8

// Command Type Numbering Strategy:
// - 0-50:  Instance management commands (internal, low-frequency)
// - 51+:   Instance calls (external messages and self continuations)
const (
	CmdUnknown CommandType = 0
	CmdDeploy  CommandType = 1

	CmdLendOwnership     CommandType = 51
	CmdProcessQueue      CommandType = 52
	CmdCancelOrder       CommandType = 53
	CmdCancelWalletOrder CommandType = 54
	CmdCancelContinue    CommandType = 55
)

func (t CommandType) String() string {
	switch t {
	case CmdDeploy:
		return "deploy"
	case CmdLendOwnership:
		return "lend_ownership"
	case CmdProcessQueue:
		return "process_queue"
	case CmdCancelOrder:
		return "cancel_order"
	case CmdCancelWalletOrder:
		return "cancel_wallet_order"
	case CmdCancelContinue:
		return "cancel_continue"
	}
	return "unknown"
}

// Command is the inbound message envelope of the exchange.
type Command struct {
	// Version is the protocol version for backward compatibility.
	Version uint8 `json:"version"`

	// Dest is the address of the target instance (Routing Header).
	Dest string `json:"dest"`

	// SeqID is used for global ordering and deduplication.
	SeqID uint64 `json:"seq_id"`

	// Type identifies the payload type for fast routing.
	Type CommandType `json:"type"`

	// Sender is the address the message comes from.
	Sender string `json:"sender"`

	// Value is the amount of evers attached to the message, base 10.
	Value string `json:"value,omitempty"`

	// Now is the unix time of the call. Zero lets the exchange use its clock.
	Now uint32 `json:"now,omitempty"`

	// Payload contains the serialized call arguments.
	Payload []byte `json:"payload,omitempty"`

	// Metadata stores non-business context (e.g., Tracing ID, Source IP).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DeployCommand is the payload for deploying a new instance.
type DeployCommand struct {
	Address string          `json:"address"`
	Config  json.RawMessage `json:"config"` // JSON encoded engine config
}

// LendOwnershipCommand is the payload of a token wallet lend notification.
type LendOwnershipCommand struct {
	Balance    string `json:"balance"` // Using string to prevent precision loss in JSON
	FinishTime uint32 `json:"finish_time"`
	Pubkey     string `json:"pubkey"`
	Owner      string `json:"owner,omitempty"`
	AnswerAddr string `json:"answer_addr"`

	Sell            bool   `json:"sell"`
	ImmediateClient bool   `json:"immediate_client"`
	PostOrder       bool   `json:"post_order"`
	Amount          string `json:"amount"`
	ClientAddr      string `json:"client_addr"`
	UserID          uint64 `json:"user_id"`
	OrderID         uint64 `json:"order_id"`
}

// CancelOrderCommand is the payload for cancelling orders of one side.
// Nil ids match every order of the sender.
type CancelOrderCommand struct {
	Sell    bool    `json:"sell"`
	UserID  *uint64 `json:"user_id,omitempty"`
	OrderID *uint64 `json:"order_id,omitempty"`
}

// CancelContinueCommand is the payload of a cancellation continuation.
type CancelContinueCommand struct {
	CancelOrderCommand
	Wallet bool   `json:"wallet"`
	Owner  string `json:"owner"`
}
