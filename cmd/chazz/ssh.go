package chazz

import (
	"context"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["ssh"] = chazzSSH
	lib.Args["ssh"] = sshArgs{}
}

type sshArgs struct {
	lib.ConfigFlags
	Selector   string `arg:"positional" help:"instance name or id, default is the instance running the default image"`
	NoSetup    bool   `arg:"--no-setup" help:"skip setup scripts"`
	ForceSetup bool   `arg:"--force-setup" help:"run setup scripts even if already done this boot"`
}

func (sshArgs) Description() string {
	return "\nstart or create an instance, run setup, and ssh into it\n"
}

func chazzSSH() {
	var args sshArgs
	arg.MustParse(&args)
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
	cmd := lib.SSHCommand(app.Config.SSH, instance.Address)
	cmd.Stdin = os.Stdin
	// the session owns the terminal, interrupts belong to the remote shell
	exit(app.Runner.Run(context.WithoutCancel(ctx), cmd))
}
