// Package config loads the settings of a pricexchg process from YAML and
// PRICEXCHG_* environment variables.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	xchg "github.com/0x5487/pricexchg"
)

const envPrefix = "PRICEXCHG"

// Settings is the whole configuration of a pricexchg process.
type Settings struct {
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Store    StoreConfig    `mapstructure:"store"`
	Instance InstanceConfig `mapstructure:"instance"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// KafkaConfig enables publishing outbound messages to a topic. Kinds limits
// the published message kinds; empty publishes all.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" validate:"required_with=Topic"`
	Topic   string   `mapstructure:"topic"`
	Kinds   []string `mapstructure:"kinds"`
}

// StoreConfig is the pebble directory books are persisted in. Empty keeps
// them in memory only.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Tip3Config describes one asset of the pair.
type Tip3Config struct {
	Name          string `mapstructure:"name"`
	Symbol        string `mapstructure:"symbol"`
	Decimals      uint8  `mapstructure:"decimals" validate:"lte=38"`
	Root          string `mapstructure:"root" validate:"required"`
	ReserveWallet string `mapstructure:"reserve_wallet" validate:"required"`
}

// EversConfig is the per-message processing cost schedule.
type EversConfig struct {
	TransferTip3        uint64 `mapstructure:"transfer_tip3"`
	ReturnOwnership     uint64 `mapstructure:"return_ownership"`
	OrderAnswer         uint64 `mapstructure:"order_answer"`
	ProcessQueue        uint64 `mapstructure:"process_queue"`
	SendNotify          uint64 `mapstructure:"send_notify"`
	DestWalletKeepEvers uint64 `mapstructure:"dest_wallet_keep_evers"`
}

// FeesConfig holds the taker fee and maker rebate as decimal rates, e.g. "0.001".
type FeesConfig struct {
	Taker string `mapstructure:"taker" validate:"required,numeric"`
	Maker string `mapstructure:"maker" validate:"required,numeric"`
}

// InstanceConfig describes the instance served by the process. Price is the
// number of minor units per major unit, as a decimal.
type InstanceConfig struct {
	Address    string      `mapstructure:"address" validate:"required"`
	Pair       string      `mapstructure:"pair" validate:"required"`
	Upstream   string      `mapstructure:"upstream" validate:"required"`
	NotifyAddr string      `mapstructure:"notify_addr"`
	Price      string      `mapstructure:"price" validate:"required,numeric"`
	MinAmount  string      `mapstructure:"min_amount" validate:"omitempty,number"`
	SafeDelay  uint32      `mapstructure:"safe_delay"`
	Major      Tip3Config  `mapstructure:"major"`
	Minor      Tip3Config  `mapstructure:"minor"`
	Evers      EversConfig `mapstructure:"evers"`
	Fees       FeesConfig  `mapstructure:"fees"`
	DealsLimit int         `mapstructure:"deals_limit" validate:"min=1"`
	MsgsLimit  int         `mapstructure:"msgs_limit" validate:"min=14"`
}

var validate = validator.New()

// Load reads the settings from path. Environment variables such as
// PRICEXCHG_INSTANCE_DEALS_LIMIT override the file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("instance.deals_limit", 20)
	v.SetDefault("instance.msgs_limit", xchg.MinMsgsLimit*4)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", xchg.ErrInvalidConfig, err)
	}
	return &s, nil
}

// Engine converts the instance settings into an engine config.
func (s *Settings) Engine(resolver xchg.WalletResolver) (xchg.Config, error) {
	in := s.Instance

	num, den, err := rational(in.Price)
	if err != nil {
		return xchg.Config{}, fmt.Errorf("%w: price: %v", xchg.ErrInvalidConfig, err)
	}
	fees, err := feeRates(in.Fees)
	if err != nil {
		return xchg.Config{}, err
	}
	minAmount := xchg.NewAmount(1)
	if in.MinAmount != "" {
		if minAmount, err = xchg.ParseAmount(in.MinAmount); err != nil {
			return xchg.Config{}, fmt.Errorf("%w: min amount: %v", xchg.ErrInvalidConfig, err)
		}
	}

	cfg := xchg.Config{
		Pair:       xchg.Address(in.Pair),
		Upstream:   xchg.Address(in.Upstream),
		NotifyAddr: xchg.Address(in.NotifyAddr),
		Price:      xchg.Price{Num: num, Denum: den},
		MinAmount:  minAmount,
		SafeDelay:  in.SafeDelay,
		Major:      tip3(in.Major),
		Minor:      tip3(in.Minor),
		Evers: xchg.Evers{
			TransferTip3:        xchg.NewAmount(in.Evers.TransferTip3),
			ReturnOwnership:     xchg.NewAmount(in.Evers.ReturnOwnership),
			OrderAnswer:         xchg.NewAmount(in.Evers.OrderAnswer),
			ProcessQueue:        xchg.NewAmount(in.Evers.ProcessQueue),
			SendNotify:          xchg.NewAmount(in.Evers.SendNotify),
			DestWalletKeepEvers: xchg.NewAmount(in.Evers.DestWalletKeepEvers),
		},
		Fees:       fees,
		DealsLimit: in.DealsLimit,
		MsgsLimit:  in.MsgsLimit,
		Resolver:   resolver,
	}
	if err := cfg.Validate(); err != nil {
		return xchg.Config{}, err
	}
	return cfg, nil
}

// Logger builds the zap logger described by the log section.
func (s *Settings) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if s.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func tip3(c Tip3Config) xchg.Tip3Config {
	return xchg.Tip3Config{
		Name:          c.Name,
		Symbol:        c.Symbol,
		Decimals:      c.Decimals,
		Root:          xchg.Address(c.Root),
		ReserveWallet: xchg.Address(c.ReserveWallet),
	}
}

// rational turns a non-negative decimal string into num/den with den a power of ten.
func rational(s string) (xchg.Amount, xchg.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return xchg.Amount{}, xchg.Amount{}, err
	}
	if d.IsNegative() {
		return xchg.Amount{}, xchg.Amount{}, fmt.Errorf("negative value %s", s)
	}
	num := new(big.Int).Set(d.Coefficient())
	den := big.NewInt(1)
	if exp := d.Exponent(); exp >= 0 {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	} else {
		den.Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	}
	n, overflow := uint256.FromBig(num)
	if overflow || n.BitLen() > 128 {
		return xchg.Amount{}, xchg.Amount{}, xchg.ErrOverflow
	}
	m, overflow := uint256.FromBig(den)
	if overflow || m.BitLen() > 128 {
		return xchg.Amount{}, xchg.Amount{}, xchg.ErrOverflow
	}
	return *n, *m, nil
}

// feeRates expresses both rates over their smallest shared power of ten.
func feeRates(c FeesConfig) (xchg.Fees, error) {
	taker, err := decimal.NewFromString(c.Taker)
	if err != nil {
		return xchg.Fees{}, fmt.Errorf("%w: taker fee: %v", xchg.ErrInvalidConfig, err)
	}
	maker, err := decimal.NewFromString(c.Maker)
	if err != nil {
		return xchg.Fees{}, fmt.Errorf("%w: maker fee: %v", xchg.ErrInvalidConfig, err)
	}
	if taker.IsNegative() || maker.IsNegative() {
		return xchg.Fees{}, fmt.Errorf("%w: negative fee", xchg.ErrInvalidConfig)
	}

	scale := int32(0)
	for _, d := range []decimal.Decimal{taker, maker} {
		if e := -d.Exponent(); e > scale {
			scale = e
		}
	}
	if scale > 18 {
		return xchg.Fees{}, fmt.Errorf("%w: fee precision above 18 digits", xchg.ErrInvalidConfig)
	}

	fees := xchg.Fees{
		TakerNum: uint64(taker.Shift(scale).IntPart()),
		MakerNum: uint64(maker.Shift(scale).IntPart()),
		Denom:    uint64(decimal.New(1, scale).IntPart()),
	}
	if !fees.Valid() {
		return xchg.Fees{}, fmt.Errorf("%w: taker fee must exceed maker fee and stay below 1", xchg.ErrInvalidConfig)
	}
	return fees, nil
}
