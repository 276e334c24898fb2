package compliance

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// InputError rejects a request before pipeline entry: content out of length
// bounds, unsupported language or content type. No partial side effects occur.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// LimitExceededError rejects a request before pipeline entry when the advisor
// has used up the configured daily validation quota.
type LimitExceededError struct {
	AdvisorID string
	Limit     int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("daily validation limit of %d exceeded for advisor %s", e.Limit, e.AdvisorID)
}

var requestValidator = validator.New()

// MinContentLength and MaxContentLength bound the content field in runes.
const (
	MinContentLength = 10
	MaxContentLength = 2000
)

// ValidateRequest checks the request shape and content bounds. It returns an
// *InputError describing the first failing field, or nil.
func ValidateRequest(req *ValidationRequest) error {
	if req == nil {
		return &InputError{Reason: "request is nil"}
	}
	if n := utf8.RuneCountInString(req.Content); n < MinContentLength || n > MaxContentLength {
		return &InputError{
			Field:  "content",
			Reason: fmt.Sprintf("must be between %d and %d characters, got %d", MinContentLength, MaxContentLength, n),
		}
	}
	if err := requestValidator.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return &InputError{
				Field:  verrs[0].Field(),
				Reason: fmt.Sprintf("failed %q validation", verrs[0].Tag()),
			}
		}
		return &InputError{Reason: err.Error()}
	}
	return nil
}
