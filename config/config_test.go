package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xchg "github.com/0x5487/pricexchg"
)

const sample = `
log:
  level: debug
kafka:
  brokers: ["localhost:9092"]
  topic: pricexchg.messages
store:
  path: /tmp/pricexchg
instance:
  address: "0:xchg"
  pair: "0:pair"
  upstream: "0:flex"
  notify_addr: "0:observer"
  price: "2.5"
  min_amount: "10"
  safe_delay: 30
  major:
    name: Major
    symbol: MJR
    decimals: 9
    root: "0:major"
    reserve_wallet: "0:major-reserve"
  minor:
    name: Minor
    symbol: MNR
    decimals: 6
    root: "0:minor"
    reserve_wallet: "0:minor-reserve"
  evers:
    transfer_tip3: 10
    return_ownership: 5
    order_answer: 5
    process_queue: 20
    send_notify: 2
    dest_wallet_keep_evers: 1
  fees:
    taker: "0.001"
    maker: "0.0005"
  deals_limit: 8
  msgs_limit: 40
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, []string{"localhost:9092"}, s.Kafka.Brokers)
	assert.Equal(t, "/tmp/pricexchg", s.Store.Path)
	assert.Equal(t, 8, s.Instance.DealsLimit)

	cfg, err := s.Engine(nil)
	require.NoError(t, err)
	assert.Equal(t, "25", cfg.Price.Num.Dec())
	assert.Equal(t, "10", cfg.Price.Denum.Dec())
	assert.Equal(t, xchg.Fees{TakerNum: 10, MakerNum: 5, Denom: 10000}, cfg.Fees)
	assert.Equal(t, "10", cfg.MinAmount.Dec())
	assert.Equal(t, uint8(9), cfg.Major.Decimals)
	assert.Equal(t, xchg.Address("0:minor-reserve"), cfg.Minor.ReserveWallet)
	assert.Equal(t, "32", func() string { c := cfg.Evers.DealCost(); return c.Dec() }())
	assert.NotNil(t, cfg.Resolver)

	logger, err := s.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PRICEXCHG_INSTANCE_DEALS_LIMIT", "3")

	s, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Instance.DealsLimit)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("msgs limit below minimum", func(t *testing.T) {
		_, err := Load(writeConfig(t, sample+"\n"))
		require.NoError(t, err)

		t.Setenv("PRICEXCHG_INSTANCE_MSGS_LIMIT", "13")
		_, err = Load(writeConfig(t, sample))
		assert.ErrorIs(t, err, xchg.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
}

func TestEngine_FeeOrder(t *testing.T) {
	s, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	s.Instance.Fees = FeesConfig{Taker: "0.001", Maker: "0.002"}
	_, err = s.Engine(nil)
	assert.ErrorIs(t, err, xchg.ErrInvalidConfig)
}

func TestRational(t *testing.T) {
	num, den, err := rational("0.125")
	require.NoError(t, err)
	assert.Equal(t, "125", num.Dec())
	assert.Equal(t, "1000", den.Dec())

	num, den, err = rational("300")
	require.NoError(t, err)
	assert.Equal(t, "300", num.Dec())
	assert.Equal(t, "1", den.Dec())

	_, _, err = rational("-1")
	assert.Error(t, err)
}
