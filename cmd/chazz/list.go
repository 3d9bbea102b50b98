package chazz

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["list"] = chazzList
	lib.Args["list"] = listArgs{}
}

type listArgs struct {
	lib.ConfigFlags
}

func (listArgs) Description() string {
	return "\nlist instances booted from a configured image or carrying a name\n"
}

func chazzList() {
	var args listArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	app := mustApp(ctx, args.ConfigFlags)
	instances, err := app.Dir.ListRelevant(ctx)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	for _, instance := range instances {
		fmt.Println(formatInstance(app.Config, instance))
	}
}

func formatInstance(config *lib.Config, instance lib.Instance) string {
	name := instance.Name
	if name == "" {
		name = "-"
	}
	address := instance.Address
	if address == "" {
		address = "-"
	}
	age := "-"
	if !instance.LaunchTime.IsZero() {
		age = humanize.Time(instance.LaunchTime)
	}
	return fmt.Sprintf("%s %s %s %s %s %s",
		instance.ID,
		lib.ColorState(instance.State),
		config.ImageVersion(instance.ImageID),
		name,
		address,
		age,
	)
}
