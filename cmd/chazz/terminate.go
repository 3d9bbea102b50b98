package chazz

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["terminate"] = chazzTerminate
	lib.Args["terminate"] = terminateArgs{}
}

type terminateArgs struct {
	lib.ConfigFlags
	Selector string `arg:"positional,required" help:"instance name or id"`
	Wait     bool   `arg:"-w,--wait" help:"wait for the instance to terminate"`
}

func (terminateArgs) Description() string {
	return "\nterminate an instance, its disk is deleted\n"
}

func chazzTerminate() {
	var args terminateArgs
	arg.MustParse(&args)
	sel := lib.ParseSelector(args.Selector)
	if sel.Kind == lib.SelectorDefault {
		lib.Logger.Fatal("error: provide an instance name or id")
	}
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	instance, err := app.Rec.Terminate(ctx, sel, args.Wait)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(instance.ID, lib.ColorState(instance.State))
}
