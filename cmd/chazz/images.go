package chazz

import (
	"fmt"
	"sort"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["images"] = chazzImages
	lib.Args["images"] = imagesArgs{}
}

type imagesArgs struct {
	lib.ConfigFlags
}

func (imagesArgs) Description() string {
	return "\nlist configured image versions, the default is marked with *\n"
}

func chazzImages() {
	var args imagesArgs
	arg.MustParse(&args)
	config, err := lib.LoadConfig(args.ConfigFlags)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	var versions []string
	for version := range config.Images {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	defaultID := config.DefaultImageID()
	for _, version := range versions {
		mark := " "
		if config.Images[version] == defaultID {
			mark = "*"
		}
		fmt.Println(mark, version, config.Images[version])
	}
	if defaultID != "" && config.ImageVersion(defaultID) == defaultID {
		fmt.Println("*", "-", defaultID)
	}
}
