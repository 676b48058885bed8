package session

import (
	"fmt"
	"regexp"
)

var (
	nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)
	userRegexp = regexp.MustCompile(`^\+?[0-9]{4,15}$`)
)

// ValidateName checks that name conforms to session naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// ValidateUserID checks that id is a phone-number-like identifier.
func ValidateUserID(id string) error {
	if !userRegexp.MatchString(id) {
		return fmt.Errorf("invalid user id %q: must be a phone-number-like identifier", id)
	}
	return nil
}
