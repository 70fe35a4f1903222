package xchg

import "errors"

var (
	ErrInvalidParam  = errors.New("the param is invalid")
	ErrInvalidConfig = errors.New("the config is invalid")
	ErrOverflow      = errors.New("amount does not fit 128 bits")
	ErrDestroyed     = errors.New("price xchg has been destroyed")
	ErrAlreadyExists = errors.New("price xchg already exists")
	ErrUnauthorized  = errors.New("sender is not allowed to call this method")
	ErrTimeout       = errors.New("timeout")
	ErrShutdown      = errors.New("exchange is shutting down")
	ErrNotFound      = errors.New("not found")
)

// ErrorCode is the result code carried by order answers. Contract level
// failures are reported through it and never abort the call.
type ErrorCode uint16

const (
	ErrCodeOK                                  ErrorCode = 0
	ErrCodeOutOfEvers                          ErrorCode = 100
	ErrCodeNotEnoughEvers                      ErrorCode = 101
	ErrCodeNotEnoughTokensAmount               ErrorCode = 102
	ErrCodeTooBigTokensAmount                  ErrorCode = 103
	ErrCodeUnverifiedTip3Wallet                ErrorCode = 104
	ErrCodeCanceled                            ErrorCode = 105
	ErrCodeExpired                             ErrorCode = 106
	ErrCodeHaveOtherSideWithNonImmediateClient ErrorCode = 107
	ErrCodeNotPostOrder                        ErrorCode = 108
)

var errorCodeNames = map[ErrorCode]string{
	ErrCodeOK:                                  "ok",
	ErrCodeOutOfEvers:                          "out_of_evers",
	ErrCodeNotEnoughEvers:                      "not_enough_evers",
	ErrCodeNotEnoughTokensAmount:               "not_enough_tokens_amount",
	ErrCodeTooBigTokensAmount:                  "too_big_tokens_amount",
	ErrCodeUnverifiedTip3Wallet:                "unverified_tip3_wallet",
	ErrCodeCanceled:                            "canceled",
	ErrCodeExpired:                             "expired",
	ErrCodeHaveOtherSideWithNonImmediateClient: "have_other_side_with_non_immediate_client",
	ErrCodeNotPostOrder:                        "not_post_order",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error lets a non-zero code travel as a Go error where one is expected.
func (c ErrorCode) Error() string {
	return c.String()
}
