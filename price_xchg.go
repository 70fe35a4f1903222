package xchg

import (
	"fmt"

	"go.uber.org/zap"
)

// PriceXchg matches the orders of one asset pair at one fixed price.
// It is not safe for concurrent use; the host serializes calls.
type PriceXchg struct {
	addr      Address
	cfg       Config
	sells     *OrderQueue
	buys      *OrderQueue
	destroyed bool

	publisher Publisher
	metrics   *Metrics
}

// InstanceOption configures a PriceXchg.
type InstanceOption func(*PriceXchg)

// WithMetrics records call metrics into m.
func WithMetrics(m *Metrics) InstanceOption {
	return func(x *PriceXchg) {
		x.metrics = m
	}
}

// NewPriceXchg creates an empty instance at addr. Messages of every committed
// call are handed to publisher.
func NewPriceXchg(addr Address, cfg Config, publisher Publisher, opts ...InstanceOption) (*PriceXchg, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidParam)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = NewDiscardPublisher()
	}
	x := &PriceXchg{
		addr:      addr,
		cfg:       cfg,
		sells:     NewOrderQueue(Sell),
		buys:      NewOrderQueue(Buy),
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Address returns the address of the instance.
func (x *PriceXchg) Address() Address {
	return x.addr
}

// Config returns the configuration of the instance.
func (x *PriceXchg) Config() Config {
	return x.cfg
}

// Destroyed reports whether the instance destroyed itself.
func (x *PriceXchg) Destroyed() bool {
	return x.destroyed
}

// Sells returns the sell queue.
func (x *PriceXchg) Sells() *OrderQueue {
	return x.sells
}

// Buys returns the buy queue.
func (x *PriceXchg) Buys() *OrderQueue {
	return x.buys
}

// State returns the current book state.
func (x *PriceXchg) State() BookState {
	switch {
	case x.sells.Empty() && x.buys.Empty():
		return StateEmpty
	case x.buys.Empty():
		return StateSellOnly
	case x.sells.Empty():
		return StateBuyOnly
	}
	return StateMixed
}

// OnTip3LendOwnership handles the notification of a token wallet that
// custody of req.Balance tokens was lent to the instance for a new order.
// The order is validated, enqueued and matched. The returned result is
// also sent to req.AnswerAddr.
func (x *PriceXchg) OnTip3LendOwnership(call Call, req LendOwnership) (*OrderRet, error) {
	if x.destroyed {
		return nil, ErrDestroyed
	}
	st := newProcessingState(x, call)
	args := req.Args

	if code := x.verifyLend(call, req); code != ErrCodeOK {
		logger.Warn("order rejected",
			zap.String("pair", string(x.cfg.Pair)),
			zap.Bool("sell", args.Sell),
			zap.Uint64("user_id", args.UserID),
			zap.Uint64("order_id", args.OrderID),
			zap.Stringer("code", code),
		)
		st.emit(KindReturnOwnership, call.Sender, x.cfg.Evers.ReturnOwnership, &ReturnOwnership{
			Wallet: call.Sender,
			Amount: req.Balance,
		})
		ret := x.orderRet(args.Sell, args.UserID, args.OrderID, code, Amount{}, Amount{})
		st.emit(KindOrderAnswer, req.AnswerAddr, subFloor(call.Value, x.cfg.Evers.ReturnOwnership), ret)
		x.commit("lend_ownership", code, st)
		return ret, nil
	}

	side, queue := Buy, x.buys
	if args.Sell {
		side, queue = Sell, x.sells
	}
	evers := x.cfg.Evers
	order := Order{
		OriginalAmount: args.Amount,
		Amount:         args.Amount,
		Account:        sub(sub(call.Value, evers.ProcessQueue), evers.OrderAnswer),
		LendAmount:     req.Balance,
		ProviderWallet: call.Sender,
		ClientAddr:     args.ClientAddr,
		Creds:          req.Creds,
		FinishTime:     req.FinishTime,
		UserID:         args.UserID,
		OrderID:        args.OrderID,
		LTime:          call.LTime,
		PostOrder:      args.PostOrder,
	}
	seq := queue.Push(order)
	st.incoming = &incomingOrder{side: side, seq: seq, order: order}

	logger.Debug("order enqueued",
		zap.String("pair", string(x.cfg.Pair)),
		zap.Stringer("side", side),
		zap.Uint64("user_id", order.UserID),
		zap.Uint64("order_id", order.OrderID),
		zap.String("amount", order.Amount.Dec()),
	)

	x.runDealer(st)

	in := st.incoming
	var enqueued, value Amount
	if in.finished {
		value = in.account
	} else {
		enqueued = sub(order.Amount, in.processed)
	}
	ret := x.orderRet(args.Sell, args.UserID, args.OrderID, in.code, in.processed, enqueued)
	st.emit(KindOrderAnswer, req.AnswerAddr, value, ret)
	x.commit("lend_ownership", in.code, st)
	return ret, nil
}

func (x *PriceXchg) verifyLend(call Call, req LendOwnership) ErrorCode {
	cfg := &x.cfg
	args := req.Args

	minValue, ok := addChecked(cfg.Evers.ProcessQueue, cfg.Evers.OrderAnswer)
	if ok {
		minValue, ok = addChecked(minValue, cfg.Evers.DealCost())
	}
	if !ok || less(call.Value, minValue) {
		return ErrCodeNotEnoughEvers
	}
	if call.Sender != cfg.Resolver.ExpectedWallet(cfg.tip3(args.Sell), req.Creds) {
		return ErrCodeUnverifiedTip3Wallet
	}
	if !cfg.isActive(req.FinishTime, call.Now) {
		return ErrCodeExpired
	}
	if args.Amount.IsZero() || less(args.Amount, cfg.MinAmount) {
		return ErrCodeNotEnoughTokensAmount
	}
	if !fits128(&args.Amount) {
		return ErrCodeTooBigTokensAmount
	}
	cost, code := cfg.Price.minorCost(args.Amount)
	if code != ErrCodeOK {
		return code
	}

	base := cost
	if args.Sell {
		base = args.Amount
	}
	fee, _, ok := cfg.Fees.split(base)
	if !ok {
		return ErrCodeTooBigTokensAmount
	}
	need, ok := addChecked(base, fee)
	if !ok {
		return ErrCodeTooBigTokensAmount
	}
	if less(req.Balance, need) {
		return ErrCodeNotEnoughTokensAmount
	}

	same, other := x.buys, x.sells
	if args.Sell {
		same, other = x.sells, x.buys
	}
	otherTotal, sameTotal := other.Total(), same.Total()
	if !args.ImmediateClient && !otherTotal.IsZero() {
		return ErrCodeHaveOtherSideWithNonImmediateClient
	}
	// a non-post order queues behind the same side and can only fill from
	// what the opposite side has left over
	if !args.PostOrder && !sameTotal.Lt(&otherTotal) {
		return ErrCodeNotPostOrder
	}
	return ErrCodeOK
}

// ProcessQueue resumes matching interrupted by the budget of a previous call.
// It is sent by the instance itself as a continuation, but anyone may send
// it to nudge a stalled book.
func (x *PriceXchg) ProcessQueue(call Call) error {
	if x.destroyed {
		return ErrDestroyed
	}
	st := newProcessingState(x, call)
	x.runDealer(st)
	x.commit("process_queue", ErrCodeOK, st)
	return nil
}

// CancelOrder removes the orders of req's side whose client is the sender.
// It returns the number of orders removed by this call.
func (x *PriceXchg) CancelOrder(call Call, req CancelRequest) (int, error) {
	return x.cancel(call, req, false, call.Sender, true)
}

// CancelWalletOrder removes the orders of req's side lent by the sender wallet.
func (x *PriceXchg) CancelWalletOrder(call Call, req CancelRequest) (int, error) {
	return x.cancel(call, req, true, call.Sender, true)
}

// ContinueCancel resumes a cancellation split by the budget.
// Only the instance itself may send it.
func (x *PriceXchg) ContinueCancel(call Call, cont CancelContinue) (int, error) {
	if x.destroyed {
		return 0, ErrDestroyed
	}
	if call.Sender != x.addr {
		return 0, ErrUnauthorized
	}
	return x.cancel(call, cont.Request, cont.Wallet, cont.Owner, false)
}

func (x *PriceXchg) cancel(call Call, req CancelRequest, byWallet bool, owner Address, refund bool) (int, error) {
	if x.destroyed {
		return 0, ErrDestroyed
	}
	st := newProcessingState(x, call)

	side, queue := Buy, x.buys
	if req.Sell {
		side, queue = Sell, x.sells
	}
	match := func(o *Order) bool {
		if byWallet {
			if o.ProviderWallet != owner {
				return false
			}
		} else if o.ClientAddr != owner {
			return false
		}
		if req.UserID != nil && *req.UserID != o.UserID {
			return false
		}
		if req.OrderID != nil && *req.OrderID != o.OrderID {
			return false
		}
		return true
	}

	removed, more := queue.Erase(match, st.affordable(msgsPerFinished))
	for _, qo := range removed {
		st.finishOrder(side, qo.Seq, qo.Order, ErrCodeCanceled, true)
	}

	var costs Amount
	if more {
		costs = add(costs, x.cfg.Evers.ProcessQueue)
		st.emit(KindCancelContinue, x.addr, x.cfg.Evers.ProcessQueue, &CancelContinue{
			Request: req,
			Wallet:  byWallet,
			Owner:   owner,
		})
	}
	if refund {
		if len(removed) > 0 && x.cfg.NotifyAddr != "" {
			costs = add(costs, x.cfg.Evers.SendNotify)
		}
		if back := subFloor(call.Value, costs); !back.IsZero() {
			st.emit(KindRefund, call.Sender, back, nil)
		}
	}

	logger.Info("orders canceled",
		zap.String("pair", string(x.cfg.Pair)),
		zap.Stringer("side", side),
		zap.String("owner", string(owner)),
		zap.Int("removed", len(removed)),
		zap.Bool("more", more),
	)

	x.commit("cancel", ErrCodeOK, st)
	return len(removed), nil
}

// commit emits the end-of-call notifications, destroys an empty instance and
// publishes the messages of the call.
func (x *PriceXchg) commit(entry string, code ErrorCode, st *processingState) {
	st.finalize()
	if x.sells.Empty() && x.buys.Empty() {
		x.destroyed = true
		st.emit(KindDestroy, x.cfg.Upstream, Amount{}, nil)
		logger.Info("instance destroyed",
			zap.String("pair", string(x.cfg.Pair)),
			zap.String("address", string(x.addr)),
		)
	}
	x.metrics.observeCall(entry, code, st)
	x.publisher.Publish(st.out...)
}

func (x *PriceXchg) orderRet(sell bool, userID, orderID uint64, code ErrorCode, processed, enqueued Amount) *OrderRet {
	return &OrderRet{
		ErrCode:       code,
		Processed:     processed,
		Enqueued:      enqueued,
		PriceNum:      x.cfg.Price.Num,
		PriceDenum:    x.cfg.Price.Denum,
		UserID:        userID,
		OrderID:       orderID,
		Pair:          x.cfg.Pair,
		MajorDecimals: x.cfg.Major.Decimals,
		MinorDecimals: x.cfg.Minor.Decimals,
		Sell:          sell,
	}
}
