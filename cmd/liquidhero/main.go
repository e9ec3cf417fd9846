package main

import (
	"context"
	"os"
	"os/signal"

	_ "github.com/silbinarywolf/preferdiscretegpu"
	"go.uber.org/zap"

	"liquidhero/misc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		misc.Logger().Error("command failed", zap.Error(err))
	}
	misc.Sync()

	if err != nil {
		stop()
		os.Exit(1)
	}
}
