package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	xchg "github.com/0x5487/pricexchg"
	"github.com/0x5487/pricexchg/config"
	"github.com/0x5487/pricexchg/notify"
	"github.com/0x5487/pricexchg/protocol"
	"github.com/0x5487/pricexchg/store"
)

// Scenario is a list of calls replayed against one instance.
type Scenario struct {
	Steps []Step `yaml:"steps"`
}

// Step is one inbound call. Op is one of lend, cancel, cancel_wallet,
// process_queue.
type Step struct {
	Op     string `yaml:"op"`
	Sender string `yaml:"sender"` // defaults to the derived wallet for lend
	Value  uint64 `yaml:"value"`
	Now    uint32 `yaml:"now"`

	Sell            bool   `yaml:"sell"`
	Amount          string `yaml:"amount"`
	Balance         string `yaml:"balance"`
	FinishTime      uint32 `yaml:"finish_time"`
	Pubkey          string `yaml:"pubkey"`
	Owner           string `yaml:"owner"`
	Client          string `yaml:"client"`
	Answer          string `yaml:"answer"`
	UserID          uint64 `yaml:"user_id"`
	OrderID         uint64 `yaml:"order_id"`
	ImmediateClient bool   `yaml:"immediate_client"`
	PostOrder       bool   `yaml:"post_order"`
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate [scenario.yaml]",
		Short: "Replay a scenario against a fresh instance and print the outbound messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := settings.Logger()
			if err != nil {
				return err
			}
			xchg.SetLogger(logger)
			defer func() { _ = logger.Sync() }()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var scenario Scenario
			if err := yaml.Unmarshal(raw, &scenario); err != nil {
				return fmt.Errorf("parse scenario: %w", err)
			}
			return runSimulation(cmd.Context(), settings, &scenario, cmd.OutOrStdout())
		},
	}
}

func runSimulation(ctx context.Context, settings *config.Settings, scenario *Scenario, out io.Writer) error {
	resolver := xchg.Sha3WalletResolver{}
	cfg, err := settings.Engine(resolver)
	if err != nil {
		return err
	}

	memory := xchg.NewMemoryPublisher()
	publisher := xchg.Publisher(memory)
	if settings.Kafka.Topic != "" {
		kinds := make([]xchg.MessageKind, 0, len(settings.Kafka.Kinds))
		for _, k := range settings.Kafka.Kinds {
			kinds = append(kinds, xchg.MessageKind(k))
		}
		var opts []notify.Option
		if len(kinds) > 0 {
			opts = append(opts, notify.WithKinds(kinds...))
		}
		kp := notify.NewPublisher(settings.Kafka.Brokers, settings.Kafka.Topic, opts...)
		defer kp.Close()
		publisher = xchg.MultiPublisher(memory, kp)
	}

	opts := xchg.ExchangeOptions{Publisher: publisher, Resolver: resolver}
	if settings.Store.Path != "" {
		st, err := store.Open(settings.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}

	ex := xchg.NewExchange(opts)
	if _, err := ex.Restore(); err != nil {
		return err
	}
	addr := xchg.Address(settings.Instance.Address)
	if ex.Book(addr) == nil {
		if err := ex.Deploy(addr, cfg); err != nil {
			return err
		}
	}
	ex.Start()
	var stepErr error
	for i, step := range scenario.Steps {
		if err := submit(ex, addr, cfg, step); err != nil {
			stepErr = fmt.Errorf("step %d: %w", i, err)
			break
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := ex.Shutdown(ctx); err != nil {
		return err
	}
	if stepErr != nil {
		return stepErr
	}

	return printMessages(out, memory.Messages)
}

func submit(ex *xchg.Exchange, addr xchg.Address, cfg xchg.Config, step Step) error {
	cmd := &protocol.Command{
		Dest:   string(addr),
		Sender: step.Sender,
		Value:  fmt.Sprint(step.Value),
		Now:    step.Now,
	}

	var payload any
	switch step.Op {
	case "lend":
		if cmd.Sender == "" {
			tip3 := cfg.Minor
			if step.Sell {
				tip3 = cfg.Major
			}
			cmd.Sender = string(cfg.Resolver.ExpectedWallet(tip3, xchg.Credentials{Pubkey: step.Pubkey, Owner: xchg.Address(step.Owner)}))
		}
		cmd.Type = protocol.CmdLendOwnership
		payload = &protocol.LendOwnershipCommand{
			Balance:         step.Balance,
			FinishTime:      step.FinishTime,
			Pubkey:          step.Pubkey,
			Owner:           step.Owner,
			AnswerAddr:      step.Answer,
			Sell:            step.Sell,
			ImmediateClient: step.ImmediateClient,
			PostOrder:       step.PostOrder,
			Amount:          step.Amount,
			ClientAddr:      step.Client,
			UserID:          step.UserID,
			OrderID:         step.OrderID,
		}
	case "cancel", "cancel_wallet":
		cmd.Type = protocol.CmdCancelOrder
		if step.Op == "cancel_wallet" {
			cmd.Type = protocol.CmdCancelWalletOrder
		}
		c := &protocol.CancelOrderCommand{Sell: step.Sell}
		if step.OrderID != 0 {
			id := step.OrderID
			c.OrderID = &id
		}
		payload = c
	case "process_queue":
		cmd.Type = protocol.CmdProcessQueue
	default:
		return fmt.Errorf("%w: unknown op %q", xchg.ErrInvalidParam, step.Op)
	}

	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		cmd.Payload = bytes
	}
	return ex.EnqueueCommand(cmd)
}

// printMessages writes the messages as a YAML document. Amounts are rendered
// as decimal strings.
func printMessages(out io.Writer, msgs []xchg.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"messages": doc}); err != nil {
		return err
	}
	return enc.Close()
}
