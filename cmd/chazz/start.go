package chazz

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["start"] = chazzStart
	lib.Args["start"] = startArgs{}
}

type startArgs struct {
	lib.ConfigFlags
	Selector string `arg:"positional" help:"instance name or id, default is the instance running the default image"`
}

func (startArgs) Description() string {
	return "\nstart or create an instance and print its id and address\n"
}

func chazzStart() {
	var args startArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	instance, err := app.Rec.AcquireRunning(ctx, lib.ParseSelector(args.Selector))
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(instance.ID, instance.Address)
}
