// fundgated runs both funding engines behind the JSON HTTP surface, driving
// the per-block sweeps off a wall-clock ticker. It is a single-node daemon:
// the ledger is in-process, authentication and real money stay with the
// embedding deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "fundgated",
		Short:         "milestone-gated project funding and jury dispute daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fundgated:", err)
		os.Exit(1)
	}
}
