package chat

import "github.com/yebrai/skillswap/internal/apperror"

var (
	ErrEmptyContent      = apperror.InvalidArg("Message content is required")
	ErrSelfMessage       = apperror.InvalidArg("You cannot message yourself")
	ErrRecipientRequired = apperror.InvalidArg("recipientId is required")
	ErrRecipientNotFound = apperror.NotFound("Recipient not found")
	ErrContentTooLong    = apperror.InvalidArg("Message content is too long")
)
