package instructor_test

import (
	"testing"

	"studio/internal/domain/instructor"
)

// TestInstructor_Validate tests validation of Instructor.
func TestInstructor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		inst    instructor.Instructor
		wantErr bool
	}{
		{"valid", instructor.Instructor{ID: "i1", Name: "Sarah Jenks", Bio: "Vinyasa"}, false},
		{"no bio", instructor.Instructor{ID: "i2", Name: "David Chen"}, false},
		{"empty name", instructor.Instructor{ID: "i3"}, true},
		{"blank name", instructor.Instructor{ID: "i4", Name: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inst.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Instructor.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestAvatarURL tests query escaping of the name.
func TestAvatarURL(t *testing.T) {
	got := instructor.AvatarURL("Elena Rodriguez")
	want := "https://ui-avatars.com/api/?name=Elena+Rodriguez&background=random"
	if got != want {
		t.Errorf("AvatarURL() = %q, want %q", got, want)
	}
}
