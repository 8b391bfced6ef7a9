package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/cmd/guidevault/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmds.NewRootCLI().ExecuteContext(ctx)
	stop()
	cobra.CheckErr(err)
}
