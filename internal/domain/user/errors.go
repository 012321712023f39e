package user

import "github.com/yebrai/skillswap/internal/apperror"

var (
	ErrUserNotFound        = apperror.NotFound("User not found")
	ErrEmailTaken          = apperror.AlreadyExists("User already exists")
	ErrInvalidCredentials  = apperror.Unauthorized("Invalid credentials")
	ErrPasswordTooShort    = apperror.InvalidArg("password must be at least 6 characters")
	ErrNameRequired        = apperror.InvalidArg("name is required")
	ErrInvalidEmail        = apperror.InvalidArg("a valid email is required")
	ErrSkillFieldsRequired = apperror.InvalidArg("skill category and title are required")
	ErrInvalidLevel        = apperror.InvalidArg("experience level must be Beginner, Intermediate, Advanced or Expert")
	ErrSkillNotFound       = apperror.NotFound("skill not found")
	ErrDuplicateSkill      = apperror.AlreadyExists("skill with this title already offered")
)
