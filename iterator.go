package xchg

// matchingIterator is a cursor over the front of one queue. It skips expired
// and underfunded orders and keeps a mutable copy of the current head.
// The head is written back by release.
type matchingIterator struct {
	queue *OrderQueue
	side  Side
	st    *processingState

	seq   uint64
	cur   Order
	has   bool
	dirty bool
}

func newMatchingIterator(queue *OrderQueue, st *processingState) *matchingIterator {
	return &matchingIterator{
		queue: queue,
		side:  queue.Side(),
		st:    st,
	}
}

// firstActive positions the iterator on the first order able to deal,
// evicting inactive orders on the way. It returns false when the queue is
// exhausted or the budget cannot pay for another eviction.
func (it *matchingIterator) firstActive() bool {
	if it.has {
		return true
	}
	cfg := &it.st.x.cfg
	dealCost := cfg.Evers.DealCost()

	for {
		seq, order, ok := it.queue.Front()
		if !ok {
			return false
		}

		if !cfg.isActive(order.FinishTime, it.st.call.Now) {
			if !it.st.canSend(msgsPerExpired) {
				return false
			}
			it.queue.PopFront()
			it.st.finishOrder(it.side, seq, order, ErrCodeExpired, false)
			continue
		}

		if less(order.Account, dealCost) {
			if !it.st.canSend(msgsPerFinished) {
				return false
			}
			it.queue.PopFront()
			it.st.finishOrder(it.side, seq, order, ErrCodeOutOfEvers, true)
			continue
		}

		it.seq, it.cur, it.has, it.dirty = seq, order, true, false
		return true
	}
}

// onDeal charges the current order for one deal and removes it when it is
// done or can no longer pay for another deal.
func (it *matchingIterator) onDeal(quantity, evers, tokens Amount) {
	cfg := &it.st.x.cfg

	it.cur.Amount = sub(it.cur.Amount, quantity)
	it.cur.Account = subFloor(it.cur.Account, evers)
	it.cur.LendAmount = sub(it.cur.LendAmount, tokens)
	it.dirty = true

	done := it.cur.Amount.IsZero() || less(it.cur.Amount, cfg.MinAmount)
	if !done {
		if _, ok := cfg.Price.MinorCost(it.cur.Amount); !ok {
			done = true
		}
	}
	if done {
		it.queue.PopFront()
		it.st.finishOrder(it.side, it.seq, it.cur, ErrCodeOK, true)
		it.has, it.dirty = false, false
		return
	}

	if less(it.cur.Account, cfg.Evers.DealCost()) {
		it.dropWithOOC()
	}
}

// dropWithOOC evicts the current order as out of evers.
func (it *matchingIterator) dropWithOOC() {
	if !it.has {
		return
	}
	it.queue.PopFront()
	it.st.finishOrder(it.side, it.seq, it.cur, ErrCodeOutOfEvers, true)
	it.has, it.dirty = false, false
}

// release writes a mutated head back to the queue.
func (it *matchingIterator) release() {
	if it.has && it.dirty {
		it.queue.ChangeFront(it.cur)
	}
	it.has, it.dirty = false, false
}
