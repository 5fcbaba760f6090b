package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramp/ramp-mcp-server/internal/config"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

// flags shared by the root and serve commands.
type serveFlags struct {
	config    string
	scopes    string
	transport string
	httpAddr  string
	logLevel  string
	logStderr bool
}

func newRootCommand() *cobra.Command {
	var f serveFlags
	rootCmd := &cobra.Command{
		Use:   "ramp-mcp",
		Short: "MCP server for the Ramp Developer API",
		Long: `ramp-mcp loads Ramp resources into an in-memory SQLite database and
exposes tools to load, inspect and query them over MCP (stdio or HTTP).`,
		Version: version.Get().String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.scopes, "scopes", "s", strings.Join(resource.DefaultScopes, ","), "comma separated Ramp scopes to request")
	pf.StringVar(&f.config, "config", "", "YAML config file (env "+config.EnvConfigFile+")")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&f.logStderr, "log-stderr", false, "log to stderr instead of the log directory (--transport=http only)")

	rootCmd.Flags().StringVar(&f.transport, "transport", "stdio", "transport: stdio or http")
	rootCmd.Flags().StringVar(&f.httpAddr, "http", ":3333", "HTTP listen address when --transport=http")

	rootCmd.AddCommand(
		newServeCommand(&f),
		newToolsCommand(&f),
		newCallCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// loadConfig resolves the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f serveFlags) (config.Config, error) {
	cfg, err := config.Load(config.Options{File: f.config})
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("scopes") {
		cfg.Scopes = config.ParseScopes(f.scopes)
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("log-stderr") {
		cfg.Log.Stderr = f.logStderr
	}
	if flags.Lookup("transport") != nil && flags.Changed("transport") {
		cfg.Transport = f.transport
	}
	if flags.Lookup("http") != nil && flags.Changed("http") {
		cfg.HTTP.Addr = f.httpAddr
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
