package entities

import "errors"

var (
	ErrInvalidShape    = errors.New("invalid shape key")
	ErrNodeNotFound    = errors.New("node not found")
	ErrNotPartNode     = errors.New("node is not a part node")
	ErrNotQuotable     = errors.New("part shape is not quotable")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
