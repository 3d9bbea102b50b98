package lib

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// App bundles what one invocation needs. It is built once in the command and
// passed down, never stored globally.
type App struct {
	Config *Config
	AWS    aws.Config
	EC2    EC2API
	Dir    *Directory
	Rec    *Reconciler
	Runner Runner
}

// NewApp loads config, opens an aws session and builds the directory.
func NewApp(ctx context.Context, flags ConfigFlags) (*App, error) {
	config, err := LoadConfig(flags)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	cfg, err := Session(ctx, config.AWS)
	if err != nil {
		return nil, err
	}
	return NewAppWith(ctx, config, cfg, EC2Client(cfg), NewRunner())
}

func NewAppWith(ctx context.Context, config *Config, cfg aws.Config, api EC2API, runner Runner) (*App, error) {
	dir, err := NewDirectory(ctx, api, config.ImageIDs())
	if err != nil {
		return nil, err
	}
	return &App{
		Config: config,
		AWS:    cfg,
		EC2:    api,
		Dir:    dir,
		Rec:    NewReconciler(dir, api, config),
		Runner: runner,
	}, nil
}

type ReadyOptions struct {
	NoSetup    bool
	ForceSetup bool
}

// Ready acquires a running instance for sel, waits until it accepts ssh and
// runs setup on it.
func (a *App) Ready(ctx context.Context, sel Selector, opts ReadyOptions) (Instance, error) {
	instance, err := a.Rec.AcquireRunning(ctx, sel)
	if err != nil {
		return Instance{}, err
	}
	Logger.Println("instance", instance.ID, "is running at", instance.Address)
	err = WaitSSH(ctx, a.Config.SSH, instance.Address)
	if err != nil {
		return Instance{}, err
	}
	if opts.NoSetup {
		return instance, nil
	}
	err = RunSetup(ctx, a.Runner, a.EC2, a.Config, instance, opts.ForceSetup)
	if err != nil {
		return Instance{}, err
	}
	return instance, nil
}
