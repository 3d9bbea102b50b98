package chazz

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/hb-tools/chazz/lib"
)

func mustApp(ctx context.Context, flags lib.ConfigFlags) *lib.App {
	app, err := lib.NewApp(ctx, flags)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	return app
}

// exit passes a child's exit code through, so scripts calling chazz see the
// remote command's status.
func exit(err error) {
	if err == nil {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		os.Exit(exitErr.ExitCode())
	}
	lib.Logger.Fatal("error: ", err)
}
