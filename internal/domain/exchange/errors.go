package exchange

import "github.com/yebrai/skillswap/internal/apperror"

var (
	ErrNotFound            = apperror.NotFound("Exchange not found")
	ErrNotPending          = apperror.FailedPrecondition("Exchange is no longer pending")
	ErrNotRecipient        = apperror.Forbidden("Only the recipient can respond to this exchange")
	ErrInvalidStatus       = apperror.InvalidArg("status must be active or rejected")
	ErrProviderRequired    = apperror.InvalidArg("providerId is required")
	ErrProviderNotFound    = apperror.NotFound("Provider not found")
	ErrSelfExchange        = apperror.InvalidArg("You cannot request an exchange with yourself")
	ErrNoOfferedSkills     = apperror.FailedPrecondition("You need to add skills to your profile before requesting an exchange.")
	ErrSkillNotOffered     = apperror.InvalidArg("You can only offer skills from your own profile")
	ErrProviderSkillAbsent = apperror.InvalidArg("The provider does not offer that skill")
)
