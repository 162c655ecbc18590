package purchase

import "errors"

var (
	ErrInvalidPack        = errors.New("invalid or inactive coin pack")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrGateway            = errors.New("payment gateway error")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidPayload     = errors.New("invalid webhook payload")
	ErrUnknownTransaction = errors.New("no purchase intent for gateway transaction")
	ErrInternal           = errors.New("internal purchase error")
)
