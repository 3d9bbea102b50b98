package chazz

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["stop"] = chazzStop
	lib.Args["stop"] = stopArgs{}
}

type stopArgs struct {
	lib.ConfigFlags
	Selector string `arg:"positional" help:"instance name or id, default is every running instance"`
	Wait     bool   `arg:"-w,--wait" help:"wait for the instances to stop"`
}

func (stopArgs) Description() string {
	return "\nstop an instance, or all running instances\n"
}

func chazzStop() {
	var args stopArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	var instances []lib.Instance
	sel := lib.ParseSelector(args.Selector)
	if sel.Kind == lib.SelectorDefault {
		stopped, err := app.Rec.StopAll(ctx, args.Wait)
		instances = stopped
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
		if len(instances) == 0 {
			lib.Logger.Println("no running instances")
		}
	} else {
		instance, err := app.Rec.Stop(ctx, sel, args.Wait)
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
		instances = append(instances, instance)
	}
	for _, instance := range instances {
		fmt.Println(instance.ID, lib.ColorState(instance.State))
	}
}
