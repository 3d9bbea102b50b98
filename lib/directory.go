package lib

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
)

// Directory is a read-only view of the ec2 instances chazz cares about: those
// booted from a configured image, plus anything carrying a Name tag.
type Directory struct {
	api      EC2API
	imageIDs []string
	names    map[string][]string
}

// NewDirectory queries the provider once and builds the name index. Nothing is
// cached across invocations.
func NewDirectory(ctx context.Context, api EC2API, imageIDs []string) (*Directory, error) {
	d := &Directory{
		api:      api,
		imageIDs: imageIDs,
		names:    map[string][]string{},
	}
	instances, err := d.all(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	for _, instance := range instances {
		if instance.Name == "" || instance.State == StateTerminated {
			continue
		}
		d.names[instance.Name] = append(d.names[instance.Name], instance.ID)
	}
	return d, nil
}

func (d *Directory) all(ctx context.Context) ([]Instance, error) {
	raw, err := describeInstances(ctx, d.api, &ec2.DescribeInstancesInput{})
	if err != nil {
		return nil, err
	}
	instances := make([]Instance, 0, len(raw))
	for _, r := range raw {
		instance, err := newInstance(r)
		var unknown *UnknownStateError
		if errors.As(err, &unknown) {
			Logger.Println("skipping:", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// ListRelevant returns instances booted from a configured image or carrying a
// Name tag, in provider order.
func (d *Directory) ListRelevant(ctx context.Context) ([]Instance, error) {
	instances, err := d.all(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	var relevant []Instance
	for _, instance := range instances {
		if slices.Contains(d.imageIDs, instance.ImageID) || instance.Name != "" {
			relevant = append(relevant, instance)
		}
	}
	return relevant, nil
}

// ResolveName maps a Name tag to an instance id. A name shared by several live
// instances is an error rather than an arbitrary pick.
func (d *Directory) ResolveName(name string) (string, error) {
	ids := d.names[name]
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrUnknownInstance, name)
	case 1:
		return ids[0], nil
	default:
		return "", &AmbiguousNameError{Name: name, IDs: slices.Clone(ids)}
	}
}

// Get describes a single instance by id.
func (d *Directory) Get(ctx context.Context, id string) (Instance, error) {
	raw, err := describeInstances(ctx, d.api, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isInstanceNotFound(err) {
			return Instance{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Instance{}, err
	}
	if len(raw) == 0 {
		return Instance{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return newInstance(raw[0])
}

func isInstanceNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed":
		return true
	}
	return false
}
