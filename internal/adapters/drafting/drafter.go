package drafting

import (
	"context"
	"errors"
	"fmt"
)

// FallbackText is used whenever a draft cannot be produced.
const FallbackText = "Note: the instructor for this class has changed."

// ErrEmptyDraft is returned when the model answers with no text.
var ErrEmptyDraft = errors.New("drafter returned no text")

// Request carries the facts a substitution notice is written from.
type Request struct {
	ClassName     string
	OldInstructor string
	NewInstructor string
	ClassTime     string // e.g. "every Wednesday at 12:00"
}

// Drafter writes a short student-facing substitution notice. It may fail;
// callers substitute FallbackText.
type Drafter interface {
	Draft(ctx context.Context, req Request) (string, error)
}

// TemplateDrafter fills a fixed sentence. Used when no model is configured.
type TemplateDrafter struct{}

// Draft returns the templated notice.
func (TemplateDrafter) Draft(_ context.Context, req Request) (string, error) {
	return fmt.Sprintf("%s will be teaching %s (%s) in place of %s. Thank you for your understanding, we think you'll enjoy the class!",
		req.NewInstructor, req.ClassName, req.ClassTime, req.OldInstructor), nil
}
