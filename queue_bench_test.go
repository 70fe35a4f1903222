package xchg

import (
	"testing"
)

func BenchmarkOrderQueue_PushPop(b *testing.B) {
	q := NewOrderQueue(Sell)
	order := Order{OriginalAmount: NewAmount(10), Amount: NewAmount(10)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		order.OrderID = uint64(i)
		q.Push(order)
		if q.Len() > 1000 {
			q.PopFront()
		}
	}
}

func BenchmarkOrderQueue_EraseMiddle(b *testing.B) {
	const depth = 10_000

	q := NewOrderQueue(Buy)
	for i := 0; i < depth; i++ {
		q.Push(Order{OriginalAmount: NewAmount(10), Amount: NewAmount(10), UserID: uint64(i % 100), OrderID: uint64(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		target := uint64(i % depth)
		removed, _ := q.Erase(func(o *Order) bool { return o.OrderID == target }, 1)
		for _, r := range removed {
			q.Push(r.Order)
		}
	}
}
