package session

// Patch carries a partial catalog update. A nil field is left untouched;
// a non-nil pointer to "" explicitly clears an optional text field.
// Enrollment and substitution fields change only through Book/Cancel and Assign.
type Patch struct {
	Title               *string
	DayOfWeek           *int
	StartTime           *string
	DurationMinutes     *int
	Capacity            *int
	Location            *string
	Difficulty          *string
	NotificationMessage *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.DayOfWeek == nil && p.StartTime == nil &&
		p.DurationMinutes == nil && p.Capacity == nil && p.Location == nil &&
		p.Difficulty == nil && p.NotificationMessage == nil
}

// Apply merges p into s. Callers validate afterwards.
// POST: Only fields set in p are changed
func (s *Session) Apply(p Patch) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.DayOfWeek != nil {
		s.DayOfWeek = *p.DayOfWeek
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.Capacity != nil {
		s.Capacity = *p.Capacity
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Difficulty != nil {
		s.Difficulty = *p.Difficulty
	}
	if p.NotificationMessage != nil {
		s.NotificationMessage = *p.NotificationMessage
	}
}
