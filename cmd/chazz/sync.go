package chazz

import (
	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["sync"] = chazzSync
	lib.Args["sync"] = syncArgs{}
}

type syncArgs struct {
	lib.ConfigFlags
	Src      string `arg:"positional,required" help:"local file or directory"`
	Selector string `arg:"positional" help:"instance name or id, default is the instance running the default image"`
	Dest     string `arg:"-d,--dest" help:"remote destination, default sync.dest"`
	Watch    bool   `arg:"-w,--watch" help:"keep syncing on local changes"`
	NoSetup  bool   `arg:"--no-setup" help:"skip setup scripts"`
}

func (syncArgs) Description() string {
	return "\nrsync local files to an instance, optionally on every change\n"
}

func chazzSync() {
	var args syncArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	if args.Watch {
		_, err := app.Runner.LookPath(app.Config.Sync.Watcher)
		if err != nil {
			lib.Logger.Fatal("error: ", app.Config.Sync.Watcher, " is required for --watch: ", err)
		}
	}
	instance, err := app.Ready(ctx, lib.ParseSelector(args.Selector), lib.ReadyOptions{
		NoSetup: args.NoSetup,
	})
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	cmd := lib.RsyncCommand(app.Config.SSH, app.Config.Sync, instance.Address, args.Src, args.Dest)
	if args.Watch {
		cmd = lib.WatchCommand(app.Config.Sync, args.Src, cmd)
	}
	exit(app.Runner.Run(ctx, cmd))
}
