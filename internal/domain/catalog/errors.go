package catalog

import "errors"

var (
	ErrPackNotFound = errors.New("coin pack not found")
	ErrInternal     = errors.New("internal catalog error")
)
