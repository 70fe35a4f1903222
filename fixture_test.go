package xchg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAddr   Address = "0:xchg"
	testNow    uint32  = 1000
	testFinish uint32  = 2000
	testValue  uint64  = 1000
)

// testConfig prices one major unit at two minor units. DealCost is 32 and an
// order sent with 1000 evers keeps an account of 975.
func testConfig() Config {
	return Config{
		Pair:       "0:pair",
		Upstream:   "0:flex",
		NotifyAddr: "0:observer",
		Price:      NewPrice(2, 1),
		MinAmount:  NewAmount(1),
		SafeDelay:  10,
		Major:      Tip3Config{Name: "Major", Symbol: "MJR", Root: "0:major", ReserveWallet: "0:major-reserve"},
		Minor:      Tip3Config{Name: "Minor", Symbol: "MNR", Root: "0:minor", ReserveWallet: "0:minor-reserve"},
		Evers: Evers{
			TransferTip3:        NewAmount(10),
			ReturnOwnership:     NewAmount(5),
			OrderAnswer:         NewAmount(5),
			ProcessQueue:        NewAmount(20),
			SendNotify:          NewAmount(2),
			DestWalletKeepEvers: NewAmount(1),
		},
		Fees:       Fees{TakerNum: 10, MakerNum: 5, Denom: 100},
		DealsLimit: 10,
		MsgsLimit:  50,
	}
}

type harness struct {
	t     *testing.T
	x     *PriceXchg
	pub   *MemoryPublisher
	ltime uint64
	now   uint32
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	pub := NewMemoryPublisher()
	x, err := NewPriceXchg(testAddr, cfg, pub)
	require.NoError(t, err)
	return &harness{t: t, x: x, pub: pub, now: testNow}
}

func (h *harness) call(sender Address, value uint64) Call {
	h.ltime++
	return Call{Sender: sender, Value: NewAmount(value), Now: h.now, LTime: h.ltime}
}

// lendReq builds a valid lend request: a post order of a client named after
// the order id, with a balance covering amount plus the taker fee.
func (h *harness) lendReq(sell bool, orderID, amount uint64) LendOwnership {
	cfg := h.x.cfg
	base := NewAmount(amount)
	if !sell {
		base, _ = cfg.Price.MinorCost(base)
	}
	fee, _, _ := cfg.Fees.split(base)
	return LendOwnership{
		Balance:    add(base, fee),
		FinishTime: testFinish,
		Creds:      Credentials{Pubkey: fmt.Sprintf("pk-%d", orderID)},
		AnswerAddr: clientOf(orderID),
		Args: OrderArgs{
			Sell:            sell,
			ImmediateClient: true,
			PostOrder:       true,
			Amount:          NewAmount(amount),
			ClientAddr:      clientOf(orderID),
			UserID:          orderID * 10,
			OrderID:         orderID,
		},
	}
}

func clientOf(orderID uint64) Address {
	return Address(fmt.Sprintf("0:client-%d", orderID))
}

func (h *harness) walletOf(req LendOwnership) Address {
	return h.x.cfg.Resolver.ExpectedWallet(h.x.cfg.tip3(req.Args.Sell), req.Creds)
}

func (h *harness) lendWith(req LendOwnership, value uint64) *OrderRet {
	h.t.Helper()
	ret, err := h.x.OnTip3LendOwnership(h.call(h.walletOf(req), value), req)
	require.NoError(h.t, err)
	require.NotNil(h.t, ret)
	return ret
}

func (h *harness) lend(req LendOwnership) *OrderRet {
	h.t.Helper()
	return h.lendWith(req, testValue)
}

func (h *harness) processQueue() {
	h.t.Helper()
	require.NoError(h.t, h.x.ProcessQueue(h.call(testAddr, 0)))
}

// drain resumes processing until no continuation is pending.
func (h *harness) drain() {
	h.t.Helper()
	for i := 0; i < 1000; i++ {
		if h.x.destroyed || !h.pendingContinuation() {
			return
		}
		h.pub.Reset()
		h.processQueue()
	}
	h.t.Fatal("processing did not converge")
}

func (h *harness) pendingContinuation() bool {
	return len(h.pub.ByKind(KindProcessQueue)) > 0
}

func (h *harness) kinds() []MessageKind {
	kinds := make([]MessageKind, 0, h.pub.Count())
	for _, m := range h.pub.Messages {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}

func dec(a Amount) string {
	return a.Dec()
}

func transferOf(t *testing.T, m Message) *Transfer {
	t.Helper()
	require.Equal(t, KindTransfer, m.Kind)
	tr, ok := m.Body.(*Transfer)
	require.True(t, ok)
	return tr
}

func retOf(t *testing.T, m Message) *OrderRet {
	t.Helper()
	require.Equal(t, KindOrderAnswer, m.Kind)
	ret, ok := m.Body.(*OrderRet)
	require.True(t, ok)
	return ret
}

func noticeOf(t *testing.T, m Message) *Notification {
	t.Helper()
	require.Equal(t, KindNotify, m.Kind)
	n, ok := m.Body.(*Notification)
	require.True(t, ok)
	return n
}
