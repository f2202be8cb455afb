// Command h2demo is a thin example server/client CLI wiring the engine
// to a real listener. It is deliberately out of the core's scope; it
// exists only to exercise the ambient stack (config, logging, CLI) the
// way a real deployment would, grounded on docker-compose's
// cobra.Command tree (main.go, cli/cmd/compose/build.go) for the
// command shape and the teacher's examples/autocert/main.go for TLS
// bootstrap.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "h2demo",
		Short: "Example server/client for the engine module",
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (see internal/h2config)")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(serveCommand())
	root.AddCommand(pingCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
