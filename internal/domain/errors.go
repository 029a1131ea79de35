package domain

import "errors"

// Trade submission.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyPositioned   = errors.New("already positioned in market")
	ErrMarketClosed        = errors.New("market closed")
)

// Resolution.
var (
	ErrAlreadyResolved = errors.New("market already resolved")
	ErrTooEarly        = errors.New("resolution deadline not reached")
)

var (
	ErrDuplicatePosition = errors.New("duplicate position")
	ErrMarketNotFound    = errors.New("market not found")
	ErrInvalidDeadline   = errors.New("resolution deadline must be in the future")
	ErrInvalidSide       = errors.New("invalid side")
)

// Comments.
var (
	ErrEmptyComment   = errors.New("comment text is empty")
	ErrCommentTooLong = errors.New("comment text too long")
)
