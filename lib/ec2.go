package lib

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const (
	TagName  = "Name"
	TagSetup = "chazz:setup"
)

// EC2API is the subset of the ec2 client used by chazz. *ec2.Client satisfies it.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

var _ EC2API = (*ec2.Client)(nil)

// Instance is the descriptor chazz works with, flattened from ec2types.Instance.
type Instance struct {
	ID         string
	ImageID    string
	Name       string
	State      State
	Address    string
	LaunchTime time.Time
	Tags       map[string]string
}

func newInstance(instance ec2types.Instance) (Instance, error) {
	state, err := stateOf(instance)
	if err != nil {
		return Instance{}, err
	}
	tags := ec2Tags(instance.Tags)
	address := aws.ToString(instance.PublicDnsName)
	if address == "" {
		address = aws.ToString(instance.PublicIpAddress)
	}
	return Instance{
		ID:         aws.ToString(instance.InstanceId),
		ImageID:    aws.ToString(instance.ImageId),
		Name:       tags[TagName],
		State:      state,
		Address:    address,
		LaunchTime: aws.ToTime(instance.LaunchTime),
		Tags:       tags,
	}, nil
}

func ec2Tags(tags []ec2types.Tag) map[string]string {
	val := map[string]string{}
	for _, tag := range tags {
		val[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return val
}

// describeInstances pages through DescribeInstances and flattens reservations.
func describeInstances(ctx context.Context, api EC2API, input *ec2.DescribeInstancesInput) ([]ec2types.Instance, error) {
	var instances []ec2types.Instance
	for {
		output, err := api.DescribeInstances(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, reservation := range output.Reservations {
			instances = append(instances, reservation.Instances...)
		}
		if output.NextToken == nil || *output.NextToken == "" {
			break
		}
		input.NextToken = output.NextToken
	}
	return instances, nil
}
