package unlock

import "errors"

var (
	ErrNotPurchasable = errors.New("chapter is not purchasable")
	ErrInternal       = errors.New("internal unlock error")

	// errDuplicate is the store telling us a concurrent request already
	// created the record; callers translate it into a success no-op.
	errDuplicate = errors.New("unlock record already exists")
)
