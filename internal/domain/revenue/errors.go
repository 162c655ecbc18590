package revenue

import "errors"

var (
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrInsufficientAccrual = errors.New("insufficient accrued revenue")
	ErrRequestNotFound     = errors.New("withdrawal request not found")
	ErrInvalidTransition   = errors.New("invalid withdrawal status transition")
	ErrInternal            = errors.New("internal revenue error")
)
