package instructor

import (
	"errors"
	"net/url"
	"strings"
)

// Domain errors
var (
	ErrEmptyName = errors.New("instructor name cannot be empty")
	ErrInUse     = errors.New("instructor is currently teaching a class; reassign the class first")
)

// Instructor teaches sessions.
type Instructor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	ImageURL string `json:"imageUrl"`
}

// Validate checks if the Instructor has valid data.
// PRE: Instructor struct is populated
// POST: Returns nil if valid, error otherwise
func (i *Instructor) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// AvatarURL builds a generated avatar for a name.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
