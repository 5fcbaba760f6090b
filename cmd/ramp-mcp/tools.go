package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramp/ramp-mcp-server/internal/app"
	"github.com/ramp/ramp-mcp-server/internal/config"
	"github.com/ramp/ramp-mcp-server/internal/logging"
)

func newToolsCommand(f *serveFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show which tools the given scopes enable, without contacting Ramp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scopes := config.ParseScopes(f.scopes)
			return printTools(cmd.OutOrStdout(), app.GrantScopes(scopes, logging.Discard()))
		},
	}
}

func printTools(w io.Writer, granted []string) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSCOPES\tENABLED")
	for _, e := range app.Registry() {
		scopes := strings.Join(e.Scopes, ",")
		if scopes == "" {
			scopes = "-"
		}
		enabled := "yes"
		if missing := e.Missing(granted); len(missing) > 0 {
			enabled = "no (missing " + strings.Join(missing, ",") + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, scopes, enabled)
	}
	return tw.Flush()
}
