// Package cli implements the reqb command, it sends one HTTP request by a request builder.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grayfox/go-client/pkg/config"
)

var version = "0.1.0" //nolint:gochecknoglobals

type options struct {
	method    string
	headers   []string
	data      string
	form      []string
	timeout   time.Duration
	result    bool
	json      bool
	noColor   bool
	configKey string
	envFile   string
}

// NewRootCommand creates the reqb command, the output is written to out, logs and traces to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:     "reqb [flags] URL",
		Short:   "Send a single HTTP request",
		Version: version,
		Long: `reqb builds and sends exactly one HTTP request.

Form parameters are encoded in the configured charset and sent as the request body.
Without --result, only the response status code is printed.
With --result, the response text is printed if the status code is 200 or 201.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{
				ConfigFile: opts.configKey,
				EnvFile:    opts.envFile,
				Flags:      cmd.Flags(),
			})
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, args[0], out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "method", "X", "", "request method (GET, POST, PUT, DELETE, HEAD, OPTIONS, TRACE)")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Name: value" (can be used multiple times)`)
	flags.StringVarP(&opts.data, "data", "d", "", "request body")
	flags.StringArrayVarP(&opts.form, "form", "F", nil, `form parameter "name=value" (can be used multiple times)`)
	flags.DurationVar(&opts.timeout, "timeout", 0, "connect and read timeout (default from config)")
	flags.BoolVar(&opts.result, "result", false, "print the response text")
	flags.BoolVar(&opts.json, "json", false, "print the result as JSON")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.configKey, "config", "", "YAML config file")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "file with environment variables")
	flags.String("backend", config.BackendConn, "request builder backend (conn, resty)")
	flags.String("trace", config.TraceNone, "trace output to stderr (none, log, dump)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("user-agent", "", "User-Agent header (default from config)")
	flags.String("charset", "", "charset of form parameters (default from config)")
	return cmd
}

// Execute runs the reqb command with the process arguments.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
