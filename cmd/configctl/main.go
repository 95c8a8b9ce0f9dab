// Command configctl queries and modifies key-file configuration files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeforaOS/libSystem/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewConfigCommand().ExecuteContext(ctx)
	stop()

	if err != nil && !cli.Silent(err) {
		fmt.Fprintf(os.Stderr, "configctl: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
