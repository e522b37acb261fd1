// Command terroirctl validates catalog documents and scores location
// profiles against a catalog offline.
//
// Usage:
//
//	terroirctl check [catalog.json|catalog.yaml]
//	terroirctl compare --catalog catalog.yaml profile.json
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "terroirctl",
		Short:        "Terroir catalog tooling",
		Long:         "Validates region catalog documents and compares location profiles against a catalog without running the service.",
		SilenceUsage: true,
	}
	root.AddCommand(newCheckCmd(), newCompareCmd())
	return root
}
