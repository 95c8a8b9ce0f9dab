// Command pluginctl resolves plugin modules and probes their symbols.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/DeforaOS/libSystem/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewPluginCommand().ExecuteContext(ctx)
	stop()

	if err != nil && !cli.Silent(err) {
		fmt.Fprintf(os.Stderr, "pluginctl: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
