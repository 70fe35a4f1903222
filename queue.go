package xchg

import (
	"github.com/huandu/skiplist"
)

// QueuedOrder is an order together with its position in the queue.
type QueuedOrder struct {
	Seq   uint64
	Order Order
}

// OrderQueue is the FIFO queue of one side. Orders are keyed by a
// monotonically increasing sequence number, so the front is always the
// oldest order and removal from the middle stays O(log n).
// The total of remaining amounts is cached and kept in step with every mutation.
type OrderQueue struct {
	side    Side
	list    *skiplist.SkipList
	total   Amount
	nextSeq uint64
}

// NewOrderQueue creates an empty queue for side.
func NewOrderQueue(side Side) *OrderQueue {
	return &OrderQueue{
		side: side,
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			s1, _ := lhs.(uint64)
			s2, _ := rhs.(uint64)

			if s1 > s2 {
				return 1
			} else if s1 < s2 {
				return -1
			}

			return 0
		})),
	}
}

// Side returns the side of the queue.
func (q *OrderQueue) Side() Side {
	return q.side
}

// Len returns the number of orders.
func (q *OrderQueue) Len() int {
	return q.list.Len()
}

// Empty reports whether the queue holds no order.
func (q *OrderQueue) Empty() bool {
	return q.list.Len() == 0
}

// Total returns the sum of remaining amounts.
func (q *OrderQueue) Total() Amount {
	return q.total
}

// NextSeq returns the sequence number the next pushed order receives.
func (q *OrderQueue) NextSeq() uint64 {
	return q.nextSeq
}

// Push appends order at the back and returns its sequence number.
func (q *OrderQueue) Push(order Order) uint64 {
	seq := q.nextSeq
	q.nextSeq++
	q.list.Set(seq, &QueuedOrder{Seq: seq, Order: order})
	q.total = add(q.total, order.Amount)
	return seq
}

// Front returns a copy of the oldest order.
func (q *OrderQueue) Front() (uint64, Order, bool) {
	el := q.list.Front()
	if el == nil {
		return 0, Order{}, false
	}
	entry, _ := el.Value.(*QueuedOrder)
	return entry.Seq, entry.Order, true
}

// ChangeFront replaces the oldest order in place, keeping its position.
func (q *OrderQueue) ChangeFront(order Order) {
	el := q.list.Front()
	if el == nil {
		return
	}
	entry, _ := el.Value.(*QueuedOrder)
	q.total = add(sub(q.total, entry.Order.Amount), order.Amount)
	entry.Order = order
}

// PopFront removes the oldest order.
func (q *OrderQueue) PopFront() (Order, bool) {
	el := q.list.Front()
	if el == nil {
		return Order{}, false
	}
	entry, _ := el.Value.(*QueuedOrder)
	q.list.RemoveElement(el)
	q.total = sub(q.total, entry.Order.Amount)
	return entry.Order, true
}

// Erase removes, oldest first, at most limit orders matching pred.
// more reports whether matching orders are left behind because of the limit.
func (q *OrderQueue) Erase(pred func(*Order) bool, limit int) (removed []QueuedOrder, more bool) {
	el := q.list.Front()
	for el != nil {
		next := el.Next()
		entry, _ := el.Value.(*QueuedOrder)
		if pred(&entry.Order) {
			if len(removed) >= limit {
				return removed, true
			}
			q.list.RemoveElement(el)
			q.total = sub(q.total, entry.Order.Amount)
			removed = append(removed, *entry)
		}
		el = next
	}
	return removed, false
}

// Has reports whether any order matches pred.
func (q *OrderQueue) Has(pred func(*Order) bool) bool {
	for el := q.list.Front(); el != nil; el = el.Next() {
		entry, _ := el.Value.(*QueuedOrder)
		if pred(&entry.Order) {
			return true
		}
	}
	return false
}

// Orders returns copies of all orders, oldest first.
func (q *OrderQueue) Orders() []Order {
	orders := make([]Order, 0, q.list.Len())
	for el := q.list.Front(); el != nil; el = el.Next() {
		entry, _ := el.Value.(*QueuedOrder)
		orders = append(orders, entry.Order)
	}
	return orders
}

// restore refills an empty queue from a snapshot.
func (q *OrderQueue) restore(orders []Order, nextSeq uint64) {
	for _, o := range orders {
		q.Push(o)
	}
	if nextSeq > q.nextSeq {
		q.nextSeq = nextSeq
	}
}
