package xchg

import (
	"github.com/rs/xid"
)

// MessageKind is the kind of an outbound message.
type MessageKind string

const (
	KindTransfer        MessageKind = "transfer"
	KindReturnOwnership MessageKind = "return_ownership"
	KindOrderAnswer     MessageKind = "order_answer"
	KindNotify          MessageKind = "notify"
	KindProcessQueue    MessageKind = "process_queue"
	KindCancelContinue  MessageKind = "cancel_continue"
	KindRefund          MessageKind = "refund"
	KindDestroy         MessageKind = "destroy"
)

// Message is one outbound effect of a call. Messages of a call are published
// in one batch after the call commits.
type Message struct {
	ID    xid.ID      `json:"id"`
	Kind  MessageKind `json:"kind"`
	Src   Address     `json:"src"`
	Dest  Address     `json:"dest"`
	Value Amount      `json:"value"` // Evers attached
	Body  any         `json:"body,omitempty"`
}

// SettlementPayload describes the deal a transfer belongs to.
type SettlementPayload struct {
	Pair          Address `json:"pair"`
	Sell          bool    `json:"sell"`
	Taker         bool    `json:"taker"`
	UserID        uint64  `json:"user_id"`
	OrderID       uint64  `json:"order_id"`
	CounterUserID uint64  `json:"counter_user_id"`
	CounterOrder  uint64  `json:"counter_order_id"`
	Quantity      Amount  `json:"quantity"`
	Cost          Amount  `json:"cost"`
	TakerFee      Amount  `json:"taker_fee"`
	MakerVig      Amount  `json:"maker_vig"`
	PriceNum      Amount  `json:"price_num"`
	PriceDenum    Amount  `json:"price_denum"`
}

// Transfer instructs FromWallet to move Amount tokens. The destination is
// either a wallet address or the wallet owned by Recipient.
type Transfer struct {
	FromWallet Address            `json:"from_wallet"`
	ToWallet   Address            `json:"to_wallet,omitempty"`
	Recipient  *Credentials       `json:"recipient,omitempty"`
	Amount     Amount             `json:"amount"`
	KeepEvers  Amount             `json:"keep_evers"`
	Deploy     bool               `json:"deploy"`
	Payload    *SettlementPayload `json:"payload,omitempty"`
}

// ReturnOwnership releases custody of Amount tokens back to Wallet's owner.
type ReturnOwnership struct {
	Wallet Address `json:"wallet"`
	Amount Amount  `json:"amount"`
}

// OrderRet is the result of an order, sent to the client and to the caller
// of onTip3LendOwnership.
type OrderRet struct {
	ErrCode       ErrorCode `json:"err_code"`
	Processed     Amount    `json:"processed"`
	Enqueued      Amount    `json:"enqueued"`
	PriceNum      Amount    `json:"price_num"`
	PriceDenum    Amount    `json:"price_denum"`
	UserID        uint64    `json:"user_id"`
	OrderID       uint64    `json:"order_id"`
	Pair          Address   `json:"pair"`
	MajorDecimals uint8     `json:"major_decimals"`
	MinorDecimals uint8     `json:"minor_decimals"`
	Sell          bool      `json:"sell"`
}

// NotificationType is the type of an observer notification.
type NotificationType string

const (
	NotifyDealCompleted NotificationType = "deal_completed"
	NotifyOrderAdded    NotificationType = "order_added"
	NotifyOrderCanceled NotificationType = "order_canceled"
)

// Notification is an aggregated observer notice emitted at the end of a call.
type Notification struct {
	Type      NotificationType `json:"type"`
	Pair      Address          `json:"pair"`
	Sell      bool             `json:"sell"`
	Amount    Amount           `json:"amount"`
	Price     string           `json:"price"`
	PriceNum  Amount           `json:"price_num"`
	PriceDen  Amount           `json:"price_denum"`
	UserID    uint64           `json:"user_id,omitempty"`
	OrderID   uint64           `json:"order_id,omitempty"`

	// order_added and order_canceled: resting volume of the side after the call.
	Total Amount `json:"total"`

	// deal_completed only: volume taken by incoming sells and buys, and the
	// assets of the pair.
	SellTaken Amount      `json:"sell_taken"`
	BuyTaken  Amount      `json:"buy_taken"`
	Major     *Tip3Config `json:"major,omitempty"`
	Minor     *Tip3Config `json:"minor,omitempty"`
}

// CancelContinue is the body of a self-directed cancellation continuation.
type CancelContinue struct {
	Request CancelRequest `json:"request"`
	Wallet  bool          `json:"wallet"` // match by provider wallet instead of client
	Owner   Address       `json:"owner"`
}

func newMessage(kind MessageKind, src, dest Address, value Amount, body any) Message {
	return Message{
		ID:    xid.New(),
		Kind:  kind,
		Src:   src,
		Dest:  dest,
		Value: value,
		Body:  body,
	}
}
