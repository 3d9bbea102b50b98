package chazz

import (
	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["setup"] = chazzSetup
	lib.Args["setup"] = setupArgs{}
}

type setupArgs struct {
	lib.ConfigFlags
	Selector string `arg:"positional" help:"instance name or id, default is the instance running the default image"`
	Force    bool   `arg:"-f,--force" help:"run even if already done this boot"`
}

func (setupArgs) Description() string {
	return "\nrun setup scripts on an instance\n"
}

func chazzSetup() {
	var args setupArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	_, err := app.Ready(ctx, lib.ParseSelector(args.Selector), lib.ReadyOptions{
		ForceSetup: args.Force,
	})
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
}
