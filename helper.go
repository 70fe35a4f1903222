package xchg

import "github.com/holiman/uint256"

// Amount is an unsigned token or evers quantity. Valid amounts fit in 128 bits.
type Amount = uint256.Int

// NewAmount returns v as an Amount.
func NewAmount(v uint64) Amount {
	return *uint256.NewInt(v)
}

// ParseAmount parses a base-10 amount and rejects values wider than 128 bits.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, err
	}
	if !fits128(v) {
		return Amount{}, ErrOverflow
	}
	return *v, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

func fits128(v *uint256.Int) bool {
	return v.BitLen() <= 128
}

func addChecked(a, b Amount) (Amount, bool) {
	var z Amount
	if _, overflow := z.AddOverflow(&a, &b); overflow || !fits128(&z) {
		return Amount{}, false
	}
	return z, true
}

// mulDivChecked returns floor(a*num/den), false on a zero denominator or a
// result wider than 128 bits.
func mulDivChecked(a, num, den Amount) (Amount, bool) {
	if den.IsZero() {
		return Amount{}, false
	}
	var z Amount
	if _, overflow := z.MulDivOverflow(&a, &num, &den); overflow || !fits128(&z) {
		return Amount{}, false
	}
	return z, true
}

func mulSmall(a Amount, n int) Amount {
	var z Amount
	z.Mul(&a, uint256.NewInt(uint64(n)))
	return z
}

func add(a, b Amount) Amount {
	var z Amount
	z.Add(&a, &b)
	return z
}

func sub(a, b Amount) Amount {
	var z Amount
	z.Sub(&a, &b)
	return z
}

// subFloor returns a-b, or zero when b exceeds a.
func subFloor(a, b Amount) Amount {
	if a.Lt(&b) {
		return Amount{}
	}
	return sub(a, b)
}

func minOf(a, b Amount) Amount {
	if a.Lt(&b) {
		return a
	}
	return b
}

func less(a, b Amount) bool {
	return a.Lt(&b)
}

// isLastFill reports whether taking quantity out of amount leaves less than one
// minimum tradable unit behind.
func isLastFill(amount, quantity, minAmount Amount) bool {
	rest := sub(amount, quantity)
	return rest.IsZero() || rest.Lt(&minAmount)
}
