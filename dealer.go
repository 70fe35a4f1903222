package xchg

import (
	"go.uber.org/zap"
)

// runDealer matches both queues until one side runs dry or the budget of
// the call is spent. An interrupted call schedules its own continuation.
func (x *PriceXchg) runDealer(st *processingState) {
	sell := newMatchingIterator(x.sells, st)
	buy := newMatchingIterator(x.buys, st)
	defer sell.release()
	defer buy.release()

	interrupted := false
	for {
		sellOK := sell.firstActive()
		buyOK := buy.firstActive()
		if st.limitHit {
			interrupted = true
			break
		}
		if !sellOK || !buyOK {
			break
		}
		if st.overlimit() {
			interrupted = true
			break
		}
		x.makeDeal(st, sell, buy)
	}
	sell.release()
	buy.release()

	if interrupted {
		x.scheduleProcessQueue(st)
		return
	}

	// With the other side empty, nothing can fill the remaining orders
	// except post orders waiting for future counterparts.
	var rest *OrderQueue
	switch {
	case x.sells.Empty() && !x.buys.Empty():
		rest = x.buys
	case x.buys.Empty() && !x.sells.Empty():
		rest = x.sells
	default:
		return
	}

	removed, more := rest.Erase(func(o *Order) bool { return !o.PostOrder }, st.affordable(msgsPerFinished))
	for _, qo := range removed {
		if !x.cfg.isActive(qo.Order.FinishTime, st.call.Now) {
			st.finishOrder(rest.Side(), qo.Seq, qo.Order, ErrCodeExpired, false)
			continue
		}
		st.finishOrder(rest.Side(), qo.Seq, qo.Order, ErrCodeNotPostOrder, true)
	}
	if more {
		x.scheduleProcessQueue(st)
	}
}

func (x *PriceXchg) scheduleProcessQueue(st *processingState) {
	logger.Debug("processing interrupted, continuation scheduled",
		zap.String("pair", string(x.cfg.Pair)),
		zap.Int("deals", st.deals),
		zap.Int("msgs", st.msgs),
	)
	st.emit(KindProcessQueue, x.addr, x.cfg.Evers.ProcessQueue, nil)
}

// makeDeal settles one deal between the heads of both queues.
func (x *PriceXchg) makeDeal(st *processingState, sell, buy *matchingIterator) {
	cfg := &x.cfg
	s, b := &sell.cur, &buy.cur

	quantity := minOf(s.Amount, b.Amount)
	lastSell := isLastFill(s.Amount, quantity, cfg.MinAmount)
	lastBuy := isLastFill(b.Amount, quantity, cfg.MinAmount)

	cost, ok := cfg.Price.MinorCost(quantity)
	if !ok {
		sell.dropWithOOC()
		buy.dropWithOOC()
		return
	}

	buyIsTaker := b.LTime > s.LTime
	base := quantity
	if buyIsTaker {
		base = cost
	}
	fee, vig, ok := cfg.Fees.split(base)
	if !ok {
		sell.dropWithOOC()
		buy.dropWithOOC()
		return
	}

	sellSpent, buySpent := quantity, cost
	if buyIsTaker {
		buySpent = add(cost, fee)
	} else {
		sellSpent = add(quantity, fee)
	}
	sellShort := less(s.LendAmount, sellSpent)
	buyShort := less(b.LendAmount, buySpent)
	if sellShort || buyShort {
		if sellShort {
			sell.dropWithOOC()
		}
		if buyShort {
			buy.dropWithOOC()
		}
		return
	}

	reserve := sub(fee, vig)
	payload := func(forSell bool) *SettlementPayload {
		p := &SettlementPayload{
			Pair:       cfg.Pair,
			Sell:       forSell,
			Taker:      forSell != buyIsTaker,
			Quantity:   quantity,
			Cost:       cost,
			TakerFee:   fee,
			MakerVig:   vig,
			PriceNum:   cfg.Price.Num,
			PriceDenum: cfg.Price.Denum,
		}
		if forSell {
			p.UserID, p.OrderID, p.CounterUserID, p.CounterOrder = s.UserID, s.OrderID, b.UserID, b.OrderID
		} else {
			p.UserID, p.OrderID, p.CounterUserID, p.CounterOrder = b.UserID, b.OrderID, s.UserID, s.OrderID
		}
		return p
	}

	majorOut, minorOut := quantity, cost
	if buyIsTaker {
		minorOut = add(cost, vig)
	} else {
		majorOut = add(quantity, vig)
	}
	sellCreds, buyCreds := s.Creds, b.Creds
	x.transfer(st, s.ProviderWallet, "", &buyCreds, majorOut, payload(true))
	x.transfer(st, b.ProviderWallet, "", &sellCreds, minorOut, payload(false))
	transfers := 2
	sellTransfers, buyTransfers := 1, 1
	if !reserve.IsZero() {
		if buyIsTaker {
			x.transfer(st, b.ProviderWallet, cfg.Minor.ReserveWallet, nil, reserve, payload(false))
			buyTransfers++
		} else {
			x.transfer(st, s.ProviderWallet, cfg.Major.ReserveWallet, nil, reserve, payload(true))
			sellTransfers++
		}
		transfers++
	}

	var sellEvers, buyEvers Amount
	switch {
	case lastSell && lastBuy:
		sellEvers = mulSmall(cfg.Evers.TransferTip3, sellTransfers)
		buyEvers = mulSmall(cfg.Evers.TransferTip3, buyTransfers)
		if buyIsTaker {
			buyEvers = add(buyEvers, cfg.Evers.SendNotify)
		} else {
			sellEvers = add(sellEvers, cfg.Evers.SendNotify)
		}
	case lastSell:
		sellEvers = add(mulSmall(cfg.Evers.TransferTip3, transfers), cfg.Evers.SendNotify)
	default:
		buyEvers = add(mulSmall(cfg.Evers.TransferTip3, transfers), cfg.Evers.SendNotify)
	}

	logger.Debug("deal",
		zap.String("pair", string(cfg.Pair)),
		zap.Uint64("sell_order_id", s.OrderID),
		zap.Uint64("buy_order_id", b.OrderID),
		zap.String("quantity", quantity.Dec()),
		zap.String("cost", cost.Dec()),
		zap.Bool("buy_taker", buyIsTaker),
	)

	st.onDeal(sell.seq, buy.seq, quantity, buyIsTaker)
	sell.onDeal(quantity, sellEvers, sellSpent)
	buy.onDeal(quantity, buyEvers, buySpent)
}

func (x *PriceXchg) transfer(st *processingState, from, to Address, recipient *Credentials, amount Amount, payload *SettlementPayload) {
	st.emit(KindTransfer, from, x.cfg.Evers.TransferTip3, &Transfer{
		FromWallet: from,
		ToWallet:   to,
		Recipient:  recipient,
		Amount:     amount,
		KeepEvers:  x.cfg.Evers.DestWalletKeepEvers,
		Deploy:     recipient != nil,
		Payload:    payload,
	})
}
