package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err == nil && cc.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), struct {
					BuildInfo
					GoVersion string `json:"go_version"`
				}{info, runtime.Version()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dockctl %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
				info.Version, info.Commit, info.BuildDate, runtime.Version())
			return nil
		},
	}
}

//Personal.AI order the ending
