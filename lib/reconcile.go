package lib

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/gofrs/uuid"
)

type SelectorKind int

const (
	SelectorDefault SelectorKind = iota
	SelectorID
	SelectorName
)

// Selector says which instance the caller wants.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// ParseSelector treats an empty string as the default image, anything starting
// with "i-" as an instance id and everything else as a Name tag.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector{Kind: SelectorDefault}
	case strings.HasPrefix(s, "i-"):
		return Selector{Kind: SelectorID, Value: s}
	default:
		return Selector{Kind: SelectorName, Value: s}
	}
}

func (s Selector) String() string {
	if s.Kind == SelectorDefault {
		return "default image"
	}
	return s.Value
}

var errNotYet = errors.New("not yet")

// forever is the attempt count for unbounded polls.
const forever = math.MaxUint32

// Reconciler drives a selected instance to running with the fewest lifecycle
// calls it can. There is no timeout on waits, cancel ctx to give up.
type Reconciler struct {
	Dir    *Directory
	API    EC2API
	Config *Config
	Poll   time.Duration
}

func NewReconciler(dir *Directory, api EC2API, config *Config) *Reconciler {
	return &Reconciler{
		Dir:    dir,
		API:    api,
		Config: config,
		Poll:   time.Duration(config.PollSeconds) * time.Second,
	}
}

// resolve finds the candidate instance for a selector. For the default selector
// a missing candidate is not an error and found is false.
func (r *Reconciler) resolve(ctx context.Context, sel Selector) (instance Instance, found bool, err error) {
	switch sel.Kind {
	case SelectorDefault:
		defaultImage := r.Config.DefaultImageID()
		if defaultImage == "" {
			return Instance{}, false, nil
		}
		instances, err := r.Dir.ListRelevant(ctx)
		if err != nil {
			return Instance{}, false, err
		}
		for _, instance := range instances {
			if instance.ImageID == defaultImage && !instance.State.Gone() {
				return instance, true, nil
			}
		}
		return Instance{}, false, nil
	case SelectorName:
		id, err := r.Dir.ResolveName(sel.Value)
		if err != nil {
			return Instance{}, false, err
		}
		return r.get(ctx, id)
	case SelectorID:
		return r.get(ctx, sel.Value)
	default:
		return Instance{}, false, fmt.Errorf("bad selector kind: %d", sel.Kind)
	}
}

func (r *Reconciler) get(ctx context.Context, id string) (Instance, bool, error) {
	instance, err := r.Dir.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Instance{}, false, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}
	if err != nil {
		return Instance{}, false, err
	}
	return instance, true, nil
}

// AcquireRunning returns a running instance with an address, starting a stopped
// one or creating one from the default image as needed.
func (r *Reconciler) AcquireRunning(ctx context.Context, sel Selector) (Instance, error) {
	instance, found, err := r.resolve(ctx, sel)
	if err != nil {
		Logger.Println("error:", err)
		return Instance{}, err
	}
	if !found {
		Logger.Println("no existing instance")
		if !r.Config.CanCreate() {
			return Instance{}, ErrNoDefaultImage
		}
		instance, err = r.create(ctx)
		if err != nil {
			Logger.Println("error:", err)
			return Instance{}, err
		}
	} else {
		Logger.Println("found existing instance", instance.ID)
		switch instance.State {
		case StateRunning:
		case StateStopped:
			instance, err = r.start(ctx, instance.ID)
			if err != nil {
				Logger.Println("error:", err)
				return Instance{}, err
			}
		default:
			return Instance{}, &UnhandledStateError{ID: instance.ID, State: instance.State}
		}
	}
	if instance.Address == "" {
		return Instance{}, fmt.Errorf("%w: %s", ErrAddressUnavailable, instance.ID)
	}
	return instance, nil
}

func (r *Reconciler) start(ctx context.Context, id string) (Instance, error) {
	Logger.Println("instance is stopped; starting", id)
	_, err := r.API.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return Instance{}, err
	}
	Logger.Println("waiting for instance to start")
	err = r.WaitState(ctx, id, StateRunning)
	if err != nil {
		return Instance{}, err
	}
	// refresh, the address changes across stop and start
	return r.Dir.Get(ctx, id)
}

func (r *Reconciler) create(ctx context.Context) (Instance, error) {
	imageID := r.Config.DefaultImageID()
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(imageID),
		InstanceType: ec2types.InstanceType(r.Config.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		ClientToken:  aws.String(uuid.Must(uuid.NewV4()).String()),
	}
	if r.Config.KeyPair != "" {
		input.KeyName = aws.String(r.Config.KeyPair)
	}
	if r.Config.SecurityGroup != "" {
		input.SecurityGroups = []string{r.Config.SecurityGroup}
	}
	if r.Config.InstanceName != "" {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{
				{Key: aws.String(TagName), Value: aws.String(r.Config.InstanceName)},
			},
		}}
	}
	Logger.Println("launching", r.Config.InstanceType, "instance from", imageID)
	output, err := r.API.RunInstances(ctx, input)
	if err != nil {
		return Instance{}, err
	}
	if len(output.Instances) != 1 {
		return Instance{}, fmt.Errorf("expected 1 new instance, got: %d", len(output.Instances))
	}
	id := aws.ToString(output.Instances[0].InstanceId)
	Logger.Println("launched", id, "waiting for it to start")
	err = r.WaitState(ctx, id, StateRunning)
	if err != nil {
		return Instance{}, err
	}
	return r.Dir.Get(ctx, id)
}

// WaitState polls the instance at a fixed interval until it reports state.
// Waiting for anything but terminated fails fast once the instance is
// terminated or shutting down, since it can never get there.
func (r *Reconciler) WaitState(ctx context.Context, id string, state State) error {
	var failure error
	err := retry.Do(
		func() error {
			instance, err := r.Dir.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				// new instances take a moment to become describable
				Logger.Println("waiting for", id, "to appear")
				return errNotYet
			}
			if err != nil {
				failure = err
				return err
			}
			if instance.State == state {
				return nil
			}
			if state != StateTerminated && instance.State.Gone() {
				failure = &UnhandledStateError{ID: id, State: instance.State}
				return failure
			}
			Logger.Printf("waiting for %s to be %s, currently %s\n", id, state, instance.State)
			return errNotYet
		},
		retry.Context(ctx),
		retry.Attempts(forever),
		retry.Delay(r.Poll),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errNotYet)
		}),
	)
	if failure != nil {
		return failure
	}
	return err
}

// Stop stops the selected instance. Stopped instances are left alone, and
// pending ones are refused since ec2 cannot stop them until they are running.
func (r *Reconciler) Stop(ctx context.Context, sel Selector, wait bool) (Instance, error) {
	instance, err := r.existing(ctx, sel)
	if err != nil {
		return Instance{}, err
	}
	switch instance.State {
	case StateStopped:
		Logger.Println("already stopped:", instance.ID)
		return instance, nil
	case StateRunning:
		Logger.Println("stopping", instance.ID)
		_, err = r.API.StopInstances(ctx, &ec2.StopInstancesInput{
			InstanceIds: []string{instance.ID},
		})
		if err != nil {
			Logger.Println("error:", err)
			return Instance{}, err
		}
	case StateStopping:
	default:
		return Instance{}, &UnhandledStateError{ID: instance.ID, State: instance.State}
	}
	if wait {
		err = r.WaitState(ctx, instance.ID, StateStopped)
		if err != nil {
			Logger.Println("error:", err)
			return Instance{}, err
		}
	}
	return r.Dir.Get(ctx, instance.ID)
}

// StopAll stops every running relevant instance, one at a time.
func (r *Reconciler) StopAll(ctx context.Context, wait bool) ([]Instance, error) {
	instances, err := r.Dir.ListRelevant(ctx)
	if err != nil {
		return nil, err
	}
	var stopped []Instance
	for _, instance := range instances {
		if instance.State != StateRunning {
			continue
		}
		instance, err = r.Stop(ctx, Selector{Kind: SelectorID, Value: instance.ID}, wait)
		if err != nil {
			return stopped, err
		}
		stopped = append(stopped, instance)
	}
	return stopped, nil
}

// Terminate terminates the selected instance. This cannot be undone.
func (r *Reconciler) Terminate(ctx context.Context, sel Selector, wait bool) (Instance, error) {
	instance, err := r.existing(ctx, sel)
	if err != nil {
		return Instance{}, err
	}
	if instance.State == StateTerminated {
		Logger.Println("already terminated:", instance.ID)
		return instance, nil
	}
	Logger.Println("terminating", instance.ID)
	_, err = r.API.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instance.ID},
	})
	if err != nil {
		Logger.Println("error:", err)
		return Instance{}, err
	}
	if wait {
		err = r.WaitState(ctx, instance.ID, StateTerminated)
		if err != nil {
			Logger.Println("error:", err)
			return Instance{}, err
		}
	}
	return r.Dir.Get(ctx, instance.ID)
}

func (r *Reconciler) existing(ctx context.Context, sel Selector) (Instance, error) {
	instance, found, err := r.resolve(ctx, sel)
	if err != nil {
		Logger.Println("error:", err)
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("%w: %s", ErrUnknownInstance, sel)
	}
	return instance, nil
}
