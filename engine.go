package xchg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x5487/pricexchg/protocol"
	"go.uber.org/zap"
)

// BookRecord is the persisted form of one instance.
type BookRecord struct {
	Config Config        `json:"config"`
	Book   *BookSnapshot `json:"book"`
}

// BookStore persists instance records between restarts.
type BookStore interface {
	SaveBook(rec *BookRecord) error
	DeleteBook(addr Address) error
	LoadBooks() ([]*BookRecord, error)
}

// ExchangeOptions configures an Exchange. Zero values select the defaults.
type ExchangeOptions struct {
	Publisher Publisher
	Store     BookStore
	Metrics   *Metrics
	Resolver  WalletResolver
	Clock     func() time.Time
	Capacity  int64 // ring buffer capacity, a power of 2
}

// Exchange hosts many instances. Commands of all instances are consumed by a
// single goroutine, so every call is atomic and instances need no locking.
type Exchange struct {
	isShutdown atomic.Bool
	books      sync.Map
	opts       ExchangeOptions
	serializer protocol.Serializer
	ring       *RingBuffer[*protocol.Command]

	// owned by the consumer goroutine
	ltime   uint64
	pending []*protocol.Command
	current *protocol.Command
}

// NewExchange creates an exchange. Call Start to begin consuming commands.
func NewExchange(opts ExchangeOptions) *Exchange {
	if opts.Publisher == nil {
		opts.Publisher = NewDiscardPublisher()
	}
	if opts.Resolver == nil {
		opts.Resolver = Sha3WalletResolver{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Capacity == 0 {
		opts.Capacity = 1024
	}
	e := &Exchange{
		opts:       opts,
		serializer: &protocol.DefaultJSONSerializer{},
	}
	e.ring = NewRingBuffer[*protocol.Command](opts.Capacity, e)
	return e
}

// Start starts consuming commands.
func (e *Exchange) Start() {
	e.ring.Start()
}

// Restore loads every persisted instance from the store.
// It must be called before Start.
func (e *Exchange) Restore() (int, error) {
	if e.opts.Store == nil {
		return 0, nil
	}
	records, err := e.opts.Store.LoadBooks()
	if err != nil {
		return 0, fmt.Errorf("load books: %w", err)
	}
	for _, rec := range records {
		cfg := rec.Config
		cfg.Resolver = e.opts.Resolver
		x, err := RestorePriceXchg(cfg, rec.Book, e.publisherFor(), WithMetrics(e.opts.Metrics))
		if err != nil {
			return 0, fmt.Errorf("restore book %s: %w", rec.Book.Address, err)
		}
		e.books.Store(x.Address(), x)
		e.opts.Metrics.instanceAdded()
	}
	logger.Info("books restored", zap.Int("count", len(records)))
	return len(records), nil
}

// Book returns the instance at addr, or nil.
func (e *Exchange) Book(addr Address) *PriceXchg {
	v, found := e.books.Load(addr)
	if !found {
		return nil
	}
	x, _ := v.(*PriceXchg)
	return x
}

// Stats returns statistics of the instance at addr. It must not race with
// the consumer, so call it after Shutdown or from a publisher.
func (e *Exchange) Stats(addr Address) (*protocol.GetStatsResponse, error) {
	x := e.Book(addr)
	if x == nil {
		return nil, ErrNotFound
	}
	sellTotal, buyTotal := x.sells.Total(), x.buys.Total()
	return &protocol.GetStatsResponse{
		Address:   string(addr),
		State:     x.State().String(),
		SellCount: int64(x.sells.Len()),
		SellTotal: sellTotal.Dec(),
		BuyCount:  int64(x.buys.Len()),
		BuyTotal:  buyTotal.Dec(),
		Destroyed: x.destroyed,
	}, nil
}

// EnqueueCommand hands cmd to the consumer.
func (e *Exchange) EnqueueCommand(cmd *protocol.Command) error {
	if e.isShutdown.Load() {
		return ErrShutdown
	}
	if cmd.Dest == "" {
		return fmt.Errorf("%w: dest is required", ErrInvalidParam)
	}
	if !e.ring.Publish(cmd) {
		return ErrShutdown
	}
	return nil
}

// Deploy creates a new instance at addr.
func (e *Exchange) Deploy(addr Address, cfg Config) error {
	check := cfg
	check.Resolver = e.opts.Resolver
	if err := check.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(&cfg)
	if err != nil {
		return err
	}
	return e.send(addr, "", protocol.CmdDeploy, Amount{}, &protocol.DeployCommand{
		Address: string(addr),
		Config:  raw,
	})
}

// LendOwnership delivers a lend notification from a token wallet.
func (e *Exchange) LendOwnership(dest, sender Address, value Amount, cmd *protocol.LendOwnershipCommand) error {
	return e.send(dest, sender, protocol.CmdLendOwnership, value, cmd)
}

// CancelOrder cancels orders of the sender acting as client.
func (e *Exchange) CancelOrder(dest, sender Address, value Amount, cmd *protocol.CancelOrderCommand) error {
	return e.send(dest, sender, protocol.CmdCancelOrder, value, cmd)
}

// CancelWalletOrder cancels orders lent by the sender wallet.
func (e *Exchange) CancelWalletOrder(dest, sender Address, value Amount, cmd *protocol.CancelOrderCommand) error {
	return e.send(dest, sender, protocol.CmdCancelWalletOrder, value, cmd)
}

// ProcessQueue nudges the instance at dest to resume interrupted matching.
// Any sender may call it.
func (e *Exchange) ProcessQueue(dest, sender Address, value Amount) error {
	return e.send(dest, sender, protocol.CmdProcessQueue, value, nil)
}

func (e *Exchange) send(dest, sender Address, typ protocol.CommandType, value Amount, payload any) error {
	cmd := &protocol.Command{
		Dest:   string(dest),
		Type:   typ,
		Sender: string(sender),
		Value:  value.Dec(),
	}
	if payload != nil {
		bytes, err := e.serializer.Marshal(payload)
		if err != nil {
			return err
		}
		cmd.Payload = bytes
	}
	return e.EnqueueCommand(cmd)
}

// Shutdown stops accepting commands and waits until all queued commands and
// their continuations are processed.
func (e *Exchange) Shutdown(ctx context.Context) error {
	e.isShutdown.Store(true)
	return e.ring.Shutdown(ctx)
}

// OnEvent implements EventHandler.
func (e *Exchange) OnEvent(cmd *protocol.Command) {
	e.handle(cmd)
}

// OnIdle runs one pending continuation.
func (e *Exchange) OnIdle() bool {
	if len(e.pending) == 0 {
		return false
	}
	cmd := e.pending[0]
	e.pending[0] = nil
	e.pending = e.pending[1:]
	e.handle(cmd)
	return true
}

func (e *Exchange) handle(cmd *protocol.Command) {
	e.ltime++
	e.current = cmd
	defer func() { e.current = nil }()

	if cmd.Type == protocol.CmdDeploy {
		e.handleDeploy(cmd)
		return
	}

	addr := Address(cmd.Dest)
	x := e.Book(addr)
	if x == nil {
		logger.Warn("instance not found", zap.String("dest", cmd.Dest), zap.Stringer("type", cmd.Type))
		return
	}

	value, err := ParseAmount(orZero(cmd.Value))
	if err != nil {
		logger.Error("invalid value", zap.String("dest", cmd.Dest), zap.Error(err))
		return
	}
	now := cmd.Now
	if now == 0 {
		now = uint32(e.opts.Clock().Unix())
	}
	call := Call{Sender: Address(cmd.Sender), Value: value, Now: now, LTime: e.ltime}

	if err := e.dispatch(x, call, cmd); err != nil {
		logger.Warn("command failed",
			zap.String("dest", cmd.Dest),
			zap.Stringer("type", cmd.Type),
			zap.Uint64("seq_id", cmd.SeqID),
			zap.Error(err),
		)
	}
	e.persist(x, cmd.SeqID)
}

func (e *Exchange) dispatch(x *PriceXchg, call Call, cmd *protocol.Command) error {
	switch cmd.Type {
	case protocol.CmdLendOwnership:
		payload := &protocol.LendOwnershipCommand{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			return err
		}
		req, err := lendFromCommand(payload)
		if err != nil {
			return err
		}
		_, err = x.OnTip3LendOwnership(call, req)
		return err
	case protocol.CmdProcessQueue:
		return x.ProcessQueue(call)
	case protocol.CmdCancelOrder, protocol.CmdCancelWalletOrder:
		payload := &protocol.CancelOrderCommand{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			return err
		}
		req := CancelRequest{Sell: payload.Sell, UserID: payload.UserID, OrderID: payload.OrderID}
		var err error
		if cmd.Type == protocol.CmdCancelOrder {
			_, err = x.CancelOrder(call, req)
		} else {
			_, err = x.CancelWalletOrder(call, req)
		}
		return err
	case protocol.CmdCancelContinue:
		payload := &protocol.CancelContinueCommand{}
		if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
			return err
		}
		_, err := x.ContinueCancel(call, CancelContinue{
			Request: CancelRequest{Sell: payload.Sell, UserID: payload.UserID, OrderID: payload.OrderID},
			Wallet:  payload.Wallet,
			Owner:   Address(payload.Owner),
		})
		return err
	}
	return fmt.Errorf("%w: unknown command type %d", ErrInvalidParam, cmd.Type)
}

func (e *Exchange) handleDeploy(cmd *protocol.Command) {
	payload := &protocol.DeployCommand{}
	if err := e.serializer.Unmarshal(cmd.Payload, payload); err != nil {
		logger.Error("failed to unmarshal Deploy command", zap.Error(err))
		return
	}
	addr := Address(payload.Address)
	if _, exists := e.books.Load(addr); exists {
		logger.Warn("instance already exists", zap.String("address", payload.Address))
		return
	}

	var cfg Config
	if err := json.Unmarshal(payload.Config, &cfg); err != nil {
		logger.Error("failed to unmarshal config", zap.Error(err))
		return
	}
	cfg.Resolver = e.opts.Resolver

	x, err := NewPriceXchg(addr, cfg, e.publisherFor(), WithMetrics(e.opts.Metrics))
	if err != nil {
		logger.Error("failed to deploy instance", zap.String("address", payload.Address), zap.Error(err))
		return
	}
	e.books.Store(addr, x)
	e.opts.Metrics.instanceAdded()
	e.persist(x, cmd.SeqID)
	logger.Info("instance deployed", zap.String("address", payload.Address), zap.String("pair", string(cfg.Pair)))
}

// persist saves the instance or deletes it once destroyed.
func (e *Exchange) persist(x *PriceXchg, seqID uint64) {
	if x.destroyed {
		e.books.Delete(x.addr)
		e.opts.Metrics.instanceRemoved()
	}
	if e.opts.Store == nil {
		return
	}

	var err error
	if x.destroyed {
		err = e.opts.Store.DeleteBook(x.addr)
	} else {
		snap := x.TakeSnapshot()
		snap.LastCmdSeqID = seqID
		err = e.opts.Store.SaveBook(&BookRecord{Config: x.cfg, Book: snap})
	}
	if err != nil {
		logger.Error("failed to persist instance", zap.String("address", string(x.addr)), zap.Error(err))
	}
}

// publisherFor returns the publisher handed to instances. Self-directed
// continuations are turned back into commands before the batch is forwarded.
func (e *Exchange) publisherFor() Publisher {
	return &routingPublisher{exchange: e}
}

type routingPublisher struct {
	exchange *Exchange
}

func (p *routingPublisher) Publish(msgs ...Message) {
	e := p.exchange
	for i := range msgs {
		msg := &msgs[i]
		if msg.Dest != msg.Src {
			continue
		}
		cmd, err := e.continuation(msg)
		if err != nil {
			logger.Error("failed to schedule continuation", zap.String("address", string(msg.Src)), zap.Error(err))
			continue
		}
		e.pending = append(e.pending, cmd)
	}
	e.opts.Publisher.Publish(msgs...)
}

func (e *Exchange) continuation(msg *Message) (*protocol.Command, error) {
	cmd := &protocol.Command{
		Dest:   string(msg.Dest),
		Sender: string(msg.Src),
		Value:  msg.Value.Dec(),
	}
	if e.current != nil {
		cmd.SeqID = e.current.SeqID
		cmd.Now = e.current.Now
	}
	switch msg.Kind {
	case KindProcessQueue:
		cmd.Type = protocol.CmdProcessQueue
	case KindCancelContinue:
		body, ok := msg.Body.(*CancelContinue)
		if !ok {
			return nil, fmt.Errorf("%w: cancel continuation without body", ErrInvalidParam)
		}
		bytes, err := e.serializer.Marshal(&protocol.CancelContinueCommand{
			CancelOrderCommand: protocol.CancelOrderCommand{
				Sell:    body.Request.Sell,
				UserID:  body.Request.UserID,
				OrderID: body.Request.OrderID,
			},
			Wallet: body.Wallet,
			Owner:  string(body.Owner),
		})
		if err != nil {
			return nil, err
		}
		cmd.Type = protocol.CmdCancelContinue
		cmd.Payload = bytes
	default:
		return nil, fmt.Errorf("%w: unexpected self message %s", ErrInvalidParam, msg.Kind)
	}
	return cmd, nil
}

func lendFromCommand(cmd *protocol.LendOwnershipCommand) (LendOwnership, error) {
	balance, err := ParseAmount(orZero(cmd.Balance))
	if err != nil {
		return LendOwnership{}, fmt.Errorf("%w: balance: %v", ErrInvalidParam, err)
	}
	amount, err := ParseAmount(orZero(cmd.Amount))
	if err != nil {
		return LendOwnership{}, fmt.Errorf("%w: amount: %v", ErrInvalidParam, err)
	}
	return LendOwnership{
		Balance:    balance,
		FinishTime: cmd.FinishTime,
		Creds:      Credentials{Pubkey: cmd.Pubkey, Owner: Address(cmd.Owner)},
		AnswerAddr: Address(cmd.AnswerAddr),
		Args: OrderArgs{
			Sell:            cmd.Sell,
			ImmediateClient: cmd.ImmediateClient,
			PostOrder:       cmd.PostOrder,
			Amount:          amount,
			ClientAddr:      Address(cmd.ClientAddr),
			UserID:          cmd.UserID,
			OrderID:         cmd.OrderID,
		},
	}, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
