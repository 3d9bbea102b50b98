package lib

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownInstance    = errors.New("unknown instance")
	ErrNoDefaultImage     = errors.New("instance creation is disabled, no default image or no_create is set")
	ErrAddressUnavailable = errors.New("instance is running but has no network address")
	ErrNotFound           = errors.New("instance not found")
	ErrSSHAuth            = errors.New("ssh key rejected")
)

// UnhandledStateError is returned when an instance is in a state that chazz does
// not drive to running on its own. Use the ec2 console to intervene.
type UnhandledStateError struct {
	ID    string
	State State
}

func (e *UnhandledStateError) Error() string {
	return fmt.Sprintf("instance %s in unhandled state: %s", e.ID, e.State)
}

// UnknownStateError is returned for state codes that do not map to a State.
type UnknownStateError struct {
	ID   string
	Code int32
}

func (e *UnknownStateError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("unknown instance state code: %d", e.Code)
	}
	return fmt.Sprintf("instance %s has unknown state code: %d", e.ID, e.Code)
}

// AmbiguousNameError is returned when more than one live instance carries the
// same Name tag.
type AmbiguousNameError struct {
	Name string
	IDs  []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("name %q is ambiguous, matches: %s", e.Name, strings.Join(e.IDs, " "))
}
