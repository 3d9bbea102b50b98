package chazz

import (
	"errors"
	"os"
	"slices"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["run"] = chazzRun
	lib.Args["run"] = runArgs{}
}

type runArgs struct {
	lib.ConfigFlags
	Selector   string `arg:"positional" help:"instance name or id, default is the instance running the default image"`
	NoSetup    bool   `arg:"--no-setup" help:"skip setup scripts"`
	ForceSetup bool   `arg:"--force-setup" help:"run setup scripts even if already done this boot"`
}

func (runArgs) Description() string {
	return "\nrun a command on an instance: chazz run [selector] -- cmd...\n"
}

func chazzRun() {
	var args runArgs
	argv := os.Args[1:]
	var remote []string
	if i := slices.Index(argv, "--"); i >= 0 {
		remote = argv[i+1:]
		argv = argv[:i]
	}
	p, err := arg.NewParser(arg.Config{Program: "chazz run"}, &args)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	err = p.Parse(argv)
	if errors.Is(err, arg.ErrHelp) {
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if err != nil {
		p.Fail(err.Error())
	}
	if len(remote) == 0 {
		p.Fail("provide a command after --")
	}
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	instance, err := app.Ready(ctx, lib.ParseSelector(args.Selector), lib.ReadyOptions{
		NoSetup:    args.NoSetup,
		ForceSetup: args.ForceSetup,
	})
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	cmd := lib.SSHCommand(app.Config.SSH, instance.Address, remote...)
	cmd.Stdin = os.Stdin
	exit(app.Runner.Run(ctx, cmd))
}
