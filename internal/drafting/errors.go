package drafting

import "errors"

var (
	ErrValidation = errors.New("validation error")
	// ErrTemplateNotFound means no template matches the requested type and language.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrGenerationFailed covers provider failures and empty drafts.
	ErrGenerationFailed = errors.New("draft generation failed")
)
