package xchg

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func TestPriceXchg_BookProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := testConfig()
		cfg.DealsLimit = rapid.IntRange(1, 4).Draw(t, "deals limit").(int)
		cfg.MsgsLimit = rapid.IntRange(MinMsgsLimit, 40).Draw(t, "msgs limit").(int)
		pub := NewMemoryPublisher()
		x, err := NewPriceXchg(testAddr, cfg, pub)
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		var ltime uint64
		call := func(sender Address, value uint64) Call {
			ltime++
			return Call{Sender: sender, Value: NewAmount(value), Now: testNow, LTime: ltime}
		}
		check := func(stage string) {
			for _, q := range []*OrderQueue{x.sells, x.buys} {
				var sum Amount
				for _, o := range q.Orders() {
					if o.Amount.IsZero() || o.OriginalAmount.Lt(&o.Amount) {
						t.Fatalf("%s: order %d has amount %s of %s", stage, o.OrderID, o.Amount.Dec(), o.OriginalAmount.Dec())
					}
					sum = add(sum, o.Amount)
				}
				total := q.Total()
				if !total.Eq(&sum) {
					t.Fatalf("%s: %s total %s, want %s", stage, q.Side(), total.Dec(), sum.Dec())
				}
			}
		}

		orders := rapid.IntRange(1, 30).Draw(t, "orders").(int)
		for id := uint64(1); id <= uint64(orders) && !x.Destroyed(); id++ {
			sell := rapid.Bool().Draw(t, "sell").(bool)
			amount := rapid.Uint64Range(1, 50).Draw(t, "amount").(uint64)
			base := NewAmount(amount)
			if !sell {
				base, _ = cfg.Price.MinorCost(base)
			}
			fee, _, _ := cfg.Fees.split(base)
			req := LendOwnership{
				Balance:    add(base, fee),
				FinishTime: testFinish,
				Creds:      Credentials{Pubkey: fmt.Sprintf("pk-%d", id)},
				AnswerAddr: clientOf(id),
				Args: OrderArgs{
					Sell:            sell,
					ImmediateClient: true,
					PostOrder:       rapid.Bool().Draw(t, "post").(bool),
					Amount:          NewAmount(amount),
					ClientAddr:      clientOf(id),
					OrderID:         id,
				},
			}
			wallet := x.cfg.Resolver.ExpectedWallet(x.cfg.tip3(sell), req.Creds)

			pub.Reset()
			if _, err := x.OnTip3LendOwnership(call(wallet, testValue), req); err != nil {
				t.Fatalf("lend: %v", err)
			}
			check("lend")

			for i := 0; len(pub.ByKind(KindProcessQueue)) > 0; i++ {
				if i > 200 {
					t.Fatalf("continuations did not converge")
				}
				if len(pub.Messages) > cfg.MsgsLimit {
					t.Fatalf("call emitted %d messages over limit %d", len(pub.Messages), cfg.MsgsLimit)
				}
				pub.Reset()
				if err := x.ProcessQueue(call(testAddr, 0)); err != nil {
					t.Fatalf("process queue: %v", err)
				}
				check("process queue")
			}
			if len(pub.Messages) > cfg.MsgsLimit {
				t.Fatalf("call emitted %d messages over limit %d", len(pub.Messages), cfg.MsgsLimit)
			}

			if !x.Destroyed() && !x.sells.Empty() && !x.buys.Empty() {
				t.Fatalf("both sides rest after processing settled")
			}
		}
	})
}
