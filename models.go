package xchg

// Side represents the order side (Buy/Sell).
type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

// Address identifies a contract: an instance, a token wallet or a client.
type Address string

// Credentials identify the owner of a token wallet.
type Credentials struct {
	Pubkey string  `json:"pubkey"`
	Owner  Address `json:"owner,omitempty"`
}

// Order represents the state of an order resting in the book.
// This is the serializable state used for snapshots.
type Order struct {
	OriginalAmount Amount      `json:"original_amount"`
	Amount         Amount      `json:"amount"`      // Remaining amount, major units
	Account        Amount      `json:"account"`     // Prepaid processing evers remaining
	LendAmount     Amount      `json:"lend_amount"` // Token custody remaining
	ProviderWallet Address     `json:"provider_wallet"`
	ClientAddr     Address     `json:"client_addr"`
	Creds          Credentials `json:"creds"`
	FinishTime     uint32      `json:"finish_time"` // Lend finish time, unix seconds
	UserID         uint64      `json:"user_id"`
	OrderID        uint64      `json:"order_id"`
	LTime          uint64      `json:"ltime"` // Arrival logical time
	PostOrder      bool        `json:"post_order"`
}

// OrderArgs is the order request carried in the lend notification payload.
type OrderArgs struct {
	Sell            bool
	ImmediateClient bool
	PostOrder       bool
	Amount          Amount
	ClientAddr      Address
	UserID          uint64
	OrderID         uint64
}

// LendOwnership is the token wallet notification that temporary custody of
// Balance tokens has been granted to the instance until FinishTime.
type LendOwnership struct {
	Balance    Amount
	FinishTime uint32
	Creds      Credentials
	Args       OrderArgs
	AnswerAddr Address
}

// CancelRequest selects orders of one side. Nil ids match everything.
type CancelRequest struct {
	Sell    bool    `json:"sell"`
	UserID  *uint64 `json:"user_id,omitempty"`
	OrderID *uint64 `json:"order_id,omitempty"`
}

// Call is the execution context of one inbound message.
type Call struct {
	Sender Address
	Value  Amount // Evers attached to the message
	Now    uint32 // Unix seconds
	LTime  uint64 // Logical time of the message
}

// BookState is the state of one instance between calls.
type BookState uint8

const (
	StateEmpty BookState = iota
	StateSellOnly
	StateBuyOnly
	// StateMixed is only observed after a call was interrupted by its budget.
	StateMixed
)

func (s BookState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSellOnly:
		return "sell_only"
	case StateBuyOnly:
		return "buy_only"
	case StateMixed:
		return "mixed"
	}
	return "unknown"
}
