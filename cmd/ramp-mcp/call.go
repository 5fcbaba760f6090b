package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rusq/osenv/v2"
	"github.com/spf13/cobra"

	"github.com/ramp/ramp-mcp-server/internal/config"
	"github.com/ramp/ramp-mcp-server/internal/mcpclient"
	"github.com/ramp/ramp-mcp-server/internal/protocol"
)

func newCallCommand() *cobra.Command {
	var (
		url     string
		token   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Invoke a tool on a running HTTP server",
		Example: `  ramp-mcp call list_tables
  ramp-mcp call load_bills '{"from_date":"2024-01-01","to_date":"2024-03-31"}'
  ramp-mcp call execute_query '{"sql":"SELECT count(*) FROM bills"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments are not valid JSON: %s", args[1])
				}
				raw = json.RawMessage(args[1])
			}
			if token == "" {
				token = osenv.Secret(config.EnvHTTPToken, "")
			}
			c := mcpclient.New(url, token, timeout)
			res, err := c.CallTool(cmd.Context(), args[0], raw)
			if err != nil {
				return describeCallError(err)
			}
			out := cmd.OutOrStdout()
			for _, part := range res.Content {
				fmt.Fprintln(out, part.Text)
			}
			if res.IsError {
				return errors.New("tool returned an error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:3333/", "MCP server URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (env "+config.EnvHTTPToken+")")
	cmd.Flags().DurationVar(&timeout, "timeout", mcpclient.DefaultTimeout, "request timeout")
	return cmd
}

func describeCallError(err error) error {
	var rerr *protocol.ResponseError
	if !errors.As(err, &rerr) {
		return err
	}
	return fmt.Errorf("error %d: %s", rerr.Code, rerr.Detail())
}
