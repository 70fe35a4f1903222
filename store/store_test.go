package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xchg "github.com/0x5487/pricexchg"
)

func record(addr xchg.Address, amounts ...uint64) *xchg.BookRecord {
	sells := make([]xchg.Order, 0, len(amounts))
	for i, a := range amounts {
		sells = append(sells, xchg.Order{
			OriginalAmount: xchg.NewAmount(a),
			Amount:         xchg.NewAmount(a),
			Account:        xchg.NewAmount(1000),
			LendAmount:     xchg.NewAmount(a),
			ProviderWallet: "wallet",
			ClientAddr:     "client",
			FinishTime:     2000,
			OrderID:        uint64(i + 1),
		})
	}
	return &xchg.BookRecord{
		Config: xchg.Config{
			Pair:       "pair",
			Upstream:   "flex",
			Price:      xchg.NewPrice(2, 1),
			MinAmount:  xchg.NewAmount(1),
			Fees:       xchg.Fees{TakerNum: 10, MakerNum: 5, Denom: 100},
			DealsLimit: 10,
			MsgsLimit:  50,
		},
		Book: &xchg.BookSnapshot{
			SchemaVersion: xchg.SnapshotSchemaVersion,
			Address:       addr,
			SellSeq:       uint64(len(amounts)),
			Sells:         sells,
		},
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveBook(record("0:b", 5)))
	require.NoError(t, s.SaveBook(record("0:a", 10, 20)))

	books, err := s.LoadBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, xchg.Address("0:a"), books[0].Book.Address)
	require.Len(t, books[0].Book.Sells, 2)
	assert.Equal(t, "20", books[0].Book.Sells[1].Amount.Dec())
	assert.Equal(t, "2", books[0].Config.Price.Num.Dec())
	assert.Equal(t, uint64(100), books[0].Config.Fees.Denom)

	got, err := s.GetBook("0:b")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Book.SellSeq)

	require.NoError(t, s.DeleteBook("0:b"))
	_, err = s.GetBook("0:b")
	assert.ErrorIs(t, err, xchg.ErrNotFound)

	books, err = s.LoadBooks()
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestStore_SaveReplaces(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveBook(record("0:a", 10, 20)))
	require.NoError(t, s.SaveBook(record("0:a", 7)))

	got, err := s.GetBook("0:a")
	require.NoError(t, err)
	require.Len(t, got.Book.Sells, 1)
	assert.Equal(t, "7", got.Book.Sells[0].Amount.Dec())
}

func TestStore_SaveRejectsEmptyRecord(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.SaveBook(&xchg.BookRecord{}), xchg.ErrInvalidParam)
}
