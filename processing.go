package xchg

import (
	"go.uber.org/zap"
)

// incomingOrder tracks the order enqueued by the current call.
type incomingOrder struct {
	side      Side
	seq       uint64
	order     Order
	processed Amount
	finished  bool
	code      ErrorCode
	account   Amount // evers left when finished
}

// processingState is the per-call budget and the accumulator of outbound
// messages and end-of-call notifications.
type processingState struct {
	x    *PriceXchg
	call Call

	deals    int
	msgs     int
	limitHit bool
	out      []Message

	dealVolume   Amount
	sellTaken    Amount
	buyTaken     Amount
	canceledSell Amount
	canceledBuy  Amount

	incoming *incomingOrder
	evicted  map[ErrorCode]int
}

func newProcessingState(x *PriceXchg, call Call) *processingState {
	return &processingState{
		x:       x,
		call:    call,
		evicted: make(map[ErrorCode]int),
	}
}

// overlimit reports whether another deal, with both sides finishing, could
// exceed the budget.
func (st *processingState) overlimit() bool {
	return st.deals >= st.x.cfg.DealsLimit ||
		st.msgs+msgsPerDeal+2*msgsPerFinished+msgsTailReserve > st.x.cfg.MsgsLimit
}

// canSend reports whether n more messages fit the budget. A refusal is
// remembered so the call schedules a continuation.
func (st *processingState) canSend(n int) bool {
	if st.msgs+n+msgsTailReserve > st.x.cfg.MsgsLimit {
		st.limitHit = true
		return false
	}
	return true
}

// affordable returns how many events costing cost messages each still fit.
func (st *processingState) affordable(cost int) int {
	n := (st.x.cfg.MsgsLimit - msgsTailReserve - st.msgs) / cost
	if n < 0 {
		return 0
	}
	return n
}

func (st *processingState) emit(kind MessageKind, dest Address, value Amount, body any) {
	st.out = append(st.out, newMessage(kind, st.x.addr, dest, value, body))
	st.msgs++
}

func (st *processingState) isIncoming(side Side, seq uint64) bool {
	return st.incoming != nil && st.incoming.side == side && st.incoming.seq == seq
}

func (st *processingState) onDeal(sellSeq, buySeq uint64, quantity Amount, buyIsTaker bool) {
	st.deals++
	st.dealVolume = add(st.dealVolume, quantity)
	if buyIsTaker {
		st.buyTaken = add(st.buyTaken, quantity)
	} else {
		st.sellTaken = add(st.sellTaken, quantity)
	}
	if st.isIncoming(Sell, sellSeq) || st.isIncoming(Buy, buySeq) {
		st.incoming.processed = add(st.incoming.processed, quantity)
	}
}

// finishOrder emits the results of an order leaving the book. Custody of the
// remaining lend is returned unless the lend already lapsed.
func (st *processingState) finishOrder(side Side, seq uint64, order Order, code ErrorCode, returnCustody bool) {
	cfg := &st.x.cfg
	account := order.Account

	if returnCustody && !order.LendAmount.IsZero() {
		st.emit(KindReturnOwnership, order.ProviderWallet, cfg.Evers.ReturnOwnership, &ReturnOwnership{
			Wallet: order.ProviderWallet,
			Amount: order.LendAmount,
		})
		account = subFloor(account, cfg.Evers.ReturnOwnership)
	}

	if !order.Amount.IsZero() {
		if side == Sell {
			st.canceledSell = add(st.canceledSell, order.Amount)
		} else {
			st.canceledBuy = add(st.canceledBuy, order.Amount)
		}
	}
	if code != ErrCodeOK {
		st.evicted[code]++
		logger.Warn("order removed",
			zap.String("pair", string(cfg.Pair)),
			zap.Stringer("side", side),
			zap.Uint64("user_id", order.UserID),
			zap.Uint64("order_id", order.OrderID),
			zap.Stringer("code", code),
		)
	}

	if st.isIncoming(side, seq) {
		st.incoming.finished = true
		st.incoming.code = code
		st.incoming.account = account
		return
	}

	processed := sub(order.OriginalAmount, order.Amount)
	st.emit(KindOrderAnswer, order.ClientAddr, account, st.x.orderRet(side == Sell, order.UserID, order.OrderID, code, processed, Amount{}))
}

// finalize emits the aggregated notifications of the call.
func (st *processingState) finalize() {
	cfg := &st.x.cfg
	if cfg.NotifyAddr == "" {
		return
	}
	price := cfg.Price.Decimal(cfg.Major.Decimals, cfg.Minor.Decimals).String()
	notify := func(n *Notification) {
		n.Pair = cfg.Pair
		n.Price = price
		n.PriceNum = cfg.Price.Num
		n.PriceDen = cfg.Price.Denum
		st.emit(KindNotify, cfg.NotifyAddr, cfg.Evers.SendNotify, n)
	}

	if !st.dealVolume.IsZero() {
		major, minor := cfg.Major, cfg.Minor
		notify(&Notification{
			Type:      NotifyDealCompleted,
			Amount:    st.dealVolume,
			SellTaken: st.sellTaken,
			BuyTaken:  st.buyTaken,
			Major:     &major,
			Minor:     &minor,
		})
	}
	if !st.canceledSell.IsZero() {
		notify(&Notification{Type: NotifyOrderCanceled, Sell: true, Amount: st.canceledSell, Total: st.x.sells.Total()})
	}
	if !st.canceledBuy.IsZero() {
		notify(&Notification{Type: NotifyOrderCanceled, Sell: false, Amount: st.canceledBuy, Total: st.x.buys.Total()})
	}
	if in := st.incoming; in != nil && !in.finished {
		queue := st.x.buys
		if in.side == Sell {
			queue = st.x.sells
		}
		notify(&Notification{
			Type:    NotifyOrderAdded,
			Sell:    in.side == Sell,
			Amount:  sub(in.order.Amount, in.processed),
			Total:   queue.Total(),
			UserID:  in.order.UserID,
			OrderID: in.order.OrderID,
		})
	}
}
