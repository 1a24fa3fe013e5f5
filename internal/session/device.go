package session

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that an account name conforms to naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid account name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// NewDeviceID returns a fresh per-process device session id. Presence
// entries are keyed by userID::deviceID so that several devices of the
// same account can report typing state independently.
func NewDeviceID() string {
	return uuid.New().String()
}

// PresenceKey builds the composite presence key for a user's device.
func PresenceKey(userID, deviceID string) string {
	return userID + "::" + deviceID
}
