package lib

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// State is an ec2 instance lifecycle state. Values are the provider's state codes.
type State int32

const (
	StatePending      State = 0
	StateRunning      State = 16
	StateShuttingDown State = 32
	StateTerminated   State = 48
	StateStopping     State = 64
	StateStopped      State = 80
)

var stateNames = map[State]string{
	StatePending:      "pending",
	StateRunning:      "running",
	StateShuttingDown: "shutting-down",
	StateTerminated:   "terminated",
	StateStopping:     "stopping",
	StateStopped:      "stopped",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
	return name
}

// Gone reports whether the instance is terminated or on its way there.
func (s State) Gone() bool {
	return s == StateTerminated || s == StateShuttingDown
}

// StateFromCode maps a provider state code to a State. The high byte of the code
// is used internally by ec2 and is ignored.
func StateFromCode(code int32) (State, error) {
	s := State(code & 0xff)
	if _, ok := stateNames[s]; !ok {
		return 0, &UnknownStateError{Code: code}
	}
	return s, nil
}

func stateOf(instance ec2types.Instance) (State, error) {
	if instance.State == nil || instance.State.Code == nil {
		return 0, &UnknownStateError{ID: aws.ToString(instance.InstanceId), Code: -1}
	}
	s, err := StateFromCode(*instance.State.Code)
	if err != nil {
		return 0, &UnknownStateError{ID: aws.ToString(instance.InstanceId), Code: *instance.State.Code}
	}
	return s, nil
}

// ColorState renders a state name green when running, cyan while in transition
// and red otherwise.
func ColorState(s State) string {
	switch s {
	case StateRunning:
		return Green(s.String())
	case StatePending, StateStopping:
		return Cyan(s.String())
	case StateStopped:
		return Yellow(s.String())
	default:
		return Red(s.String())
	}
}
