package xchg

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Tip3Config describes one asset of the pair.
type Tip3Config struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Decimals      uint8   `json:"decimals"`
	Root          Address `json:"root"`
	ReserveWallet Address `json:"reserve_wallet"`
}

// Evers is the processing cost schedule in native currency.
type Evers struct {
	TransferTip3        Amount `json:"transfer_tip3"`
	ReturnOwnership     Amount `json:"return_ownership"`
	OrderAnswer         Amount `json:"order_answer"`
	ProcessQueue        Amount `json:"process_queue"`
	SendNotify          Amount `json:"send_notify"`
	DestWalletKeepEvers Amount `json:"dest_wallet_keep_evers"`
}

// DealCost is the fixed amount an order must hold to take part in one deal.
func (e Evers) DealCost() Amount {
	return add(mulSmall(e.TransferTip3, 3), e.SendNotify)
}

// WalletResolver derives the token wallet address owned by creds for a tip3.
type WalletResolver interface {
	ExpectedWallet(tip3 Tip3Config, creds Credentials) Address
}

// Sha3WalletResolver derives addresses as sha3-256(root | pubkey | owner).
type Sha3WalletResolver struct{}

// ExpectedWallet implements WalletResolver.
func (Sha3WalletResolver) ExpectedWallet(tip3 Tip3Config, creds Credentials) Address {
	h := sha3.New256()
	h.Write([]byte(tip3.Root))
	h.Write([]byte{0})
	h.Write([]byte(creds.Pubkey))
	h.Write([]byte{0})
	h.Write([]byte(creds.Owner))
	return Address("0:" + hex.EncodeToString(h.Sum(nil)))
}

// Config is the immutable configuration of one instance.
type Config struct {
	Pair       Address `json:"pair"`
	Upstream   Address `json:"upstream"`              // receives the remaining balance on self-destruct
	NotifyAddr Address `json:"notify_addr,omitempty"` // observer, notifications are skipped when empty

	Price     Price  `json:"price"`
	MinAmount Amount `json:"min_amount"`
	SafeDelay uint32 `json:"safe_delay"`

	Major Tip3Config `json:"major"`
	Minor Tip3Config `json:"minor"`

	Evers Evers `json:"evers"`
	Fees  Fees  `json:"fees"`

	DealsLimit int `json:"deals_limit"`
	MsgsLimit  int `json:"msgs_limit"`

	Resolver WalletResolver `json:"-"`
}

// Validate checks the config and fills the defaults.
func (c *Config) Validate() error {
	if c.Pair == "" || c.Upstream == "" {
		return fmt.Errorf("%w: pair and upstream are required", ErrInvalidConfig)
	}
	if !c.Price.Valid() {
		return fmt.Errorf("%w: price must be a non-zero 128-bit rational", ErrInvalidConfig)
	}
	if c.MinAmount.IsZero() {
		c.MinAmount = NewAmount(1)
	}
	if !c.Fees.Valid() {
		return fmt.Errorf("%w: taker fee must exceed maker vig", ErrInvalidConfig)
	}
	if c.DealsLimit < 1 {
		return fmt.Errorf("%w: deals limit must be positive", ErrInvalidConfig)
	}
	if c.MsgsLimit < MinMsgsLimit {
		return fmt.Errorf("%w: msgs limit must be at least %d", ErrInvalidConfig, MinMsgsLimit)
	}
	if c.Major.ReserveWallet == "" || c.Minor.ReserveWallet == "" {
		return fmt.Errorf("%w: reserve wallets are required", ErrInvalidConfig)
	}
	if c.Resolver == nil {
		c.Resolver = Sha3WalletResolver{}
	}
	return nil
}

// isActive reports whether a lend finishing at finishTime is still usable.
func (c *Config) isActive(finishTime, now uint32) bool {
	return uint64(now)+uint64(c.SafeDelay) < uint64(finishTime)
}

func (c *Config) tip3(sell bool) Tip3Config {
	if sell {
		return c.Major
	}
	return c.Minor
}
