package lib

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Commands maps subcommand names to their entrypoints. Each file under
// cmd/chazz registers itself from init.
var Commands = make(map[string]func())

// Args holds each subcommand's go-arg struct, for usage output.
var Args = make(map[string]ArgsStruct)

type ArgsStruct interface {
	Description() string
}

// SignalContext is cancelled on the first interrupt or terminate signal, which
// ends any wait in progress.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
