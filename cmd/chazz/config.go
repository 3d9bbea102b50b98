package chazz

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["config"] = chazzConfig
	lib.Args["config"] = configArgs{}
}

type configArgs struct {
	lib.ConfigFlags
	YAML bool `arg:"--yaml" help:"print yaml instead of toml"`
	Diff bool `arg:"--diff" help:"only print settings that differ from the built-in defaults"`
}

func (configArgs) Description() string {
	return "\nprint the effective config\n"
}

func chazzConfig() {
	var args configArgs
	arg.MustParse(&args)
	config, err := lib.LoadConfig(args.ConfigFlags)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	if args.Diff {
		defaults, err := lib.DefaultConfig()
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
		changes, err := lib.ConfigChanges(defaults, config)
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
		for _, line := range changes {
			fmt.Println(line)
		}
		return
	}
	var data []byte
	if args.YAML {
		data, err = config.YAML()
	} else {
		data, err = config.TOML()
	}
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	_, _ = os.Stdout.Write(data)
}
