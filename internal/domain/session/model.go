package session

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"studio/internal/domain/schedule"
)

// Difficulty levels
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// MinDurationMinutes is the shortest class the catalog accepts.
const MinDurationMinutes = 15

// Domain errors
var (
	ErrValidation       = errors.New("validation failed")
	ErrPaymentRequired  = errors.New("membership fee has not been paid")
	ErrCapacityExceeded = errors.New("class is full")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Session is one recurring weekly class slot. It is the single aggregate for
// catalog, enrollment and substitution state.
type Session struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title" validate:"required"`
	DayOfWeek            int      `json:"dayOfWeek" validate:"min=1,max=7"`
	StartTime            string   `json:"startTimeStr" validate:"hhmm"`
	DurationMinutes      int      `json:"durationMinutes" validate:"min=15"`
	InstructorID         string   `json:"instructorId" validate:"required"`
	OriginalInstructorID string   `json:"originalInstructorId,omitempty"`
	Capacity             int      `json:"capacity" validate:"min=1"`
	EnrolledUserIDs      []string `json:"enrolledUserIds"`
	Location             string   `json:"location"`
	Difficulty           string   `json:"difficulty" validate:"oneof=Beginner Intermediate Advanced"`
	IsSubstitute         bool     `json:"isSubstitute"`
	NotificationMessage  string   `json:"notificationMessage,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := schedule.ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks catalog fields and the capacity invariant.
// PRE: Session struct is populated
// POST: Returns nil if valid, *ValidationError naming the first bad field otherwise
func (s *Session) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
		}
		return err
	}
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if len(s.EnrolledUserIDs) > s.Capacity {
		return &ValidationError{Field: "capacity", Reason: fmt.Sprintf("cannot be below current enrollment (%d)", len(s.EnrolledUserIDs))}
	}
	return nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hhmm":
		return "must be HH:MM in 24-hour format"
	}
	return "failed " + fe.Tag()
}

// --- Enrollment ledger ---

// BookOutcome distinguishes a fresh booking from a repeated one.
type BookOutcome int

const (
	Booked BookOutcome = iota + 1
	AlreadyEnrolled
)

// Enrollee is the live state of the user being booked.
type Enrollee struct {
	UserID    string
	IsStudent bool
	HasPaid   bool
}

// IsEnrolled reports membership of userID.
func (s Session) IsEnrolled(userID string) bool {
	return slices.Contains(s.EnrolledUserIDs, userID)
}

// IsFull reports whether every seat is taken.
func (s Session) IsFull() bool {
	return len(s.EnrolledUserIDs) >= s.Capacity
}

// SeatsLeft returns the number of free seats, never negative.
func (s Session) SeatsLeft() int {
	return max(s.Capacity-len(s.EnrolledUserIDs), 0)
}

// Book adds e to the member set.
// PRE: e reflects the current user record
// POST: On Booked, UserID appended exactly once; otherwise no change
func (s *Session) Book(e Enrollee) (BookOutcome, error) {
	if s.IsEnrolled(e.UserID) {
		return AlreadyEnrolled, nil
	}
	if e.IsStudent && !e.HasPaid {
		return 0, ErrPaymentRequired
	}
	if s.IsFull() {
		return 0, ErrCapacityExceeded
	}
	s.EnrolledUserIDs = append(slices.Clip(s.EnrolledUserIDs), e.UserID)
	return Booked, nil
}

// Cancel removes userID from the member set. Removing a non-member is a no-op.
// POST: Returns true if the member set changed
func (s *Session) Cancel(userID string) bool {
	if !s.IsEnrolled(userID) {
		return false
	}
	s.EnrolledUserIDs = slices.DeleteFunc(slices.Clone(s.EnrolledUserIDs), func(id string) bool {
		return id == userID
	})
	return true
}

// --- Substitution state machine ---

// State of a session's instructor assignment.
type State string

const (
	StateNormal      State = "normal"
	StateSubstituted State = "substituted"
)

// HomeInstructorID is the instructor a substitution reverts to.
func (s Session) HomeInstructorID() string {
	if s.OriginalInstructorID != "" {
		return s.OriginalInstructorID
	}
	return s.InstructorID
}

// State reports whether the session is taught by its home instructor.
func (s Session) State() State {
	if s.IsSubstitute {
		return StateSubstituted
	}
	return StateNormal
}

// Assign moves the session to newInstructorID. Assigning the home instructor
// reverts the substitution; OriginalInstructorID is kept either way.
// An empty notification leaves the previous message untouched.
// PRE: newInstructorID is non-empty
// POST: IsSubstitute == (InstructorID != HomeInstructorID())
func (s *Session) Assign(newInstructorID, notification string) error {
	if strings.TrimSpace(newInstructorID) == "" {
		return &ValidationError{Field: "instructorId", Reason: "is required"}
	}

	home := s.HomeInstructorID()
	if newInstructorID == home {
		s.InstructorID = home
		s.IsSubstitute = false
	} else {
		s.OriginalInstructorID = home
		s.InstructorID = newInstructorID
		s.IsSubstitute = true
	}

	if notification != "" {
		s.NotificationMessage = notification
	}
	return nil
}

// Clone returns a copy that does not share the member slice.
func (s Session) Clone() Session {
	s.EnrolledUserIDs = slices.Clone(s.EnrolledUserIDs)
	return s
}
