package xchg

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkExchangeLend(b *testing.B) {
	SetLogger(nil)
	e := NewExchange(ExchangeOptions{
		Publisher: NewDiscardPublisher(),
		Clock:     func() time.Time { return time.Unix(int64(testNow), 0) },
		Capacity:  1 << 16,
	})
	e.Start()

	cfg := testConfig()
	cfg.NotifyAddr = ""
	if err := e.Deploy(testAddr, cfg); err != nil {
		b.Fatal(err)
	}
	value := NewAmount(testValue)

	// a deep resting sell keeps the book alive while buys take from it
	sellWallet, sellCmd := lendCommand(cfg, true, 1, 1_000_000_000_000)
	if err := e.LendOwnership(testAddr, sellWallet, value, sellCmd); err != nil {
		b.Fatal(err)
	}
	buyWallet, buyCmd := lendCommand(cfg, false, 2, 1)

	var errCount int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := e.LendOwnership(testAddr, buyWallet, value, buyCmd); err != nil {
				atomic.AddInt64(&errCount, 1)
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = e.Shutdown(ctx)
	b.Logf("error count: %d", errCount)
}
