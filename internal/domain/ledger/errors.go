package ledger

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrInternal            = errors.New("internal ledger error")
)
