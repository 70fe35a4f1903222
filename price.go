package xchg

import (
	"github.com/shopspring/decimal"
)

// Price is the fixed price of an instance: Num minor units per Denum major units.
type Price struct {
	Num   Amount `json:"num"`
	Denum Amount `json:"denum"`
}

// NewPrice creates a price of num/denum.
func NewPrice(num, denum uint64) Price {
	return Price{Num: NewAmount(num), Denum: NewAmount(denum)}
}

// Valid reports whether both parts are non-zero 128-bit values.
func (p Price) Valid() bool {
	return !p.Num.IsZero() && !p.Denum.IsZero() && fits128(&p.Num) && fits128(&p.Denum)
}

// MinorCost returns amount*Num/Denum rounded down. The result is rejected
// when it is zero or does not fit 128 bits.
func (p Price) MinorCost(amount Amount) (Amount, bool) {
	cost, code := p.minorCost(amount)
	return cost, code == ErrCodeOK
}

func (p Price) minorCost(amount Amount) (Amount, ErrorCode) {
	cost, ok := mulDivChecked(amount, p.Num, p.Denum)
	if !ok {
		return Amount{}, ErrCodeTooBigTokensAmount
	}
	if cost.IsZero() {
		return Amount{}, ErrCodeNotEnoughTokensAmount
	}
	return cost, ErrCodeOK
}

// Decimal renders the price in whole tokens, minor per major.
func (p Price) Decimal(majorDecimals, minorDecimals uint8) decimal.Decimal {
	if p.Denum.IsZero() {
		return decimal.Zero
	}
	num := decimal.NewFromBigInt(p.Num.ToBig(), 0)
	den := decimal.NewFromBigInt(p.Denum.ToBig(), 0)
	return num.Div(den).Shift(int32(majorDecimals) - int32(minorDecimals))
}

// Fees are the taker fee and maker rebate rates over a shared denominator.
// The difference between both goes to the reserve wallet of the taker's asset.
type Fees struct {
	TakerNum uint64 `json:"taker_num"`
	MakerNum uint64 `json:"maker_num"`
	Denom    uint64 `json:"denom"`
}

// Valid reports whether the taker rate is strictly above the maker rate and
// both stay below one.
func (f Fees) Valid() bool {
	return f.Denom > 0 && f.TakerNum > f.MakerNum && f.TakerNum < f.Denom
}

// split returns the taker fee and the maker vig charged on base. Both are
// rounded down, except that the taker fee always exceeds the vig by at least
// one unit so every deal leaves a reserve share.
func (f Fees) split(base Amount) (takerFee, makerVig Amount, ok bool) {
	if base.IsZero() {
		return Amount{}, Amount{}, true
	}
	den := NewAmount(f.Denom)
	if takerFee, ok = mulDivChecked(base, NewAmount(f.TakerNum), den); !ok {
		return Amount{}, Amount{}, false
	}
	if makerVig, ok = mulDivChecked(base, NewAmount(f.MakerNum), den); !ok {
		return Amount{}, Amount{}, false
	}
	if !makerVig.Lt(&takerFee) {
		if takerFee, ok = addChecked(makerVig, NewAmount(1)); !ok {
			return Amount{}, Amount{}, false
		}
	}
	return takerFee, makerVig, true
}
