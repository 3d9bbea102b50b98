package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// transition is a state change the fake applies after a number of describes.
type transition struct {
	polls int
	to    State
}

// fakeEC2 is an in-memory EC2API. Lifecycle calls move an instance into its
// transitional state, and it settles after settlePolls describes of that id.
type fakeEC2 struct {
	order       []string
	instances   map[string]*ec2types.Instance
	pending     map[string]transition
	hidden      map[string]int // describes to answer NotFound for, for new instances
	calls       map[string]int
	settlePolls int
	pageSize    int
	noAddress   bool
	describeErr error
	lastRun     *ec2.RunInstancesInput
	lastTags    *ec2.CreateTagsInput
	nextID      int
}

var _ EC2API = (*fakeEC2)(nil)

func newFakeEC2(instances ...ec2types.Instance) *fakeEC2 {
	f := &fakeEC2{
		instances:   map[string]*ec2types.Instance{},
		pending:     map[string]transition{},
		hidden:      map[string]int{},
		calls:       map[string]int{},
		settlePolls: 2,
	}
	for _, instance := range instances {
		f.add(instance)
	}
	return f
}

func fakeInstance(id, imageID, name string, state State) ec2types.Instance {
	instance := ec2types.Instance{
		InstanceId: aws.String(id),
		ImageId:    aws.String(imageID),
		State:      &ec2types.InstanceState{Code: aws.Int32(int32(state))},
		LaunchTime: aws.Time(time.Unix(1700000000, 0)),
	}
	if name != "" {
		instance.Tags = []ec2types.Tag{{Key: aws.String(TagName), Value: aws.String(name)}}
	}
	if state == StateRunning {
		instance.PublicDnsName = aws.String("ec2-" + id + ".compute.amazonaws.com")
	}
	return instance
}

func (f *fakeEC2) add(instance ec2types.Instance) {
	id := aws.ToString(instance.InstanceId)
	f.order = append(f.order, id)
	f.instances[id] = &instance
}

// mutations counts calls that change provider state.
func (f *fakeEC2) mutations() int {
	return f.calls["StartInstances"] + f.calls["StopInstances"] + f.calls["TerminateInstances"] + f.calls["RunInstances"]
}

func (f *fakeEC2) setState(id string, state State) {
	instance := f.instances[id]
	instance.State = &ec2types.InstanceState{Code: aws.Int32(int32(state))}
	switch state {
	case StateRunning:
		if !f.noAddress {
			instance.PublicDnsName = aws.String(fmt.Sprintf("ec2-%s-%d.compute.amazonaws.com", id, f.calls["StartInstances"]+f.calls["RunInstances"]))
		}
		instance.LaunchTime = aws.Time(time.Unix(1700000000+int64(f.calls["StartInstances"]), 0))
	case StateStopped, StateTerminated:
		instance.PublicDnsName = nil
	}
}

func (f *fakeEC2) begin(id string, now, to State) {
	f.setState(id, now)
	f.pending[id] = transition{polls: f.settlePolls, to: to}
}

func notFound(id string) error {
	return &smithy.GenericAPIError{
		Code:    "InvalidInstanceID.NotFound",
		Message: fmt.Sprintf("The instance ID '%s' does not exist", id),
	}
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.calls["DescribeInstances"]++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	var ids []string
	if len(params.InstanceIds) > 0 {
		for _, id := range params.InstanceIds {
			if _, ok := f.instances[id]; !ok {
				return nil, notFound(id)
			}
			if f.hidden[id] > 0 {
				f.hidden[id]--
				return nil, notFound(id)
			}
			if t, ok := f.pending[id]; ok {
				t.polls--
				if t.polls <= 0 {
					delete(f.pending, id)
					f.setState(id, t.to)
				} else {
					f.pending[id] = t
				}
			}
			ids = append(ids, id)
		}
	} else {
		ids = f.order
	}
	start := 0
	if params.NextToken != nil {
		_, _ = fmt.Sscanf(*params.NextToken, "%d", &start)
	}
	end := len(ids)
	output := &ec2.DescribeInstancesOutput{}
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
		output.NextToken = aws.String(fmt.Sprint(end))
	}
	for _, id := range ids[start:end] {
		output.Reservations = append(output.Reservations, ec2types.Reservation{
			Instances: []ec2types.Instance{*f.instances[id]},
		})
	}
	return output, nil
}

func (f *fakeEC2) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	f.calls["StartInstances"]++
	for _, id := range params.InstanceIds {
		f.begin(id, StatePending, StateRunning)
	}
	return &ec2.StartInstancesOutput{}, nil
}

func (f *fakeEC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	f.calls["StopInstances"]++
	for _, id := range params.InstanceIds {
		f.begin(id, StateStopping, StateStopped)
	}
	return &ec2.StopInstancesOutput{}, nil
}

func (f *fakeEC2) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	f.calls["TerminateInstances"]++
	for _, id := range params.InstanceIds {
		f.begin(id, StateShuttingDown, StateTerminated)
	}
	return &ec2.TerminateInstancesOutput{}, nil
}

func (f *fakeEC2) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.calls["RunInstances"]++
	f.lastRun = params
	f.nextID++
	id := fmt.Sprintf("i-new%04d", f.nextID)
	name := ""
	for _, spec := range params.TagSpecifications {
		for _, tag := range spec.Tags {
			if aws.ToString(tag.Key) == TagName {
				name = aws.ToString(tag.Value)
			}
		}
	}
	instance := fakeInstance(id, aws.ToString(params.ImageId), name, StatePending)
	f.add(instance)
	f.pending[id] = transition{polls: f.settlePolls, to: StateRunning}
	f.hidden[id] = 1
	return &ec2.RunInstancesOutput{Instances: []ec2types.Instance{instance}}, nil
}

func (f *fakeEC2) CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	f.calls["CreateTags"]++
	f.lastTags = params
	for _, id := range params.Resources {
		instance := f.instances[id]
		instance.Tags = append(instance.Tags, params.Tags...)
	}
	return &ec2.CreateTagsOutput{}, nil
}

// fakeRunner records command lines instead of running them.
type fakeRunner struct {
	runs    [][]string
	err     error
	missing map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, opts *RunOptions) error {
	r.runs = append(r.runs, opts.Argv())
	return r.err
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}
