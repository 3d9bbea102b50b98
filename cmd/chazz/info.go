package chazz

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/hb-tools/chazz/lib"
)

func init() {
	lib.Commands["info"] = chazzInfo
	lib.Args["info"] = infoArgs{}
}

type infoArgs struct {
	lib.ConfigFlags
}

func (infoArgs) Description() string {
	return "\nshow the aws account, region and default image in use\n"
}

func chazzInfo() {
	var args infoArgs
	arg.MustParse(&args)
	ctx, cancel := lib.SignalContext()
	defer cancel()
	config, err := lib.LoadConfig(args.ConfigFlags)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	cfg, err := lib.Session(ctx, config.AWS)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	account, err := lib.StsAccount(ctx, cfg)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	image := config.DefaultImageID()
	if image == "" {
		image = "none"
	} else {
		image = config.ImageVersion(image) + " " + image
	}
	if !config.CanCreate() {
		image += ", creation disabled"
	}
	fmt.Println("account:", account)
	fmt.Println("region: ", cfg.Region)
	fmt.Println("image:  ", image)
	fmt.Println("type:   ", config.InstanceType)
}
