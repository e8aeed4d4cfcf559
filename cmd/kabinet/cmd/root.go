// Package cmd implements the kabinet command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/sdk/kabinet"
)

var (
	// Version information (set at build time via ldflags)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	url       string
	wsURL     string
	token     string
	tokenFile string
	output    string
	logLevel  string
	timeout   time.Duration
	dev       bool
}

var (
	opts   globalOptions
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kabinet",
	Short: "Kabinet - client for the Kabinet, Kuay and Konviktion services",
	Long: `kabinet talks to the Kabinet deployment service and its companions.

It can:
  - Inspect and manage backends, deployments, pods and releases
  - Match flavours to a local environment
  - Watch pod changes over a websocket or by polling
  - Send raw GraphQL documents
  - Run a local development server

Connection settings come from flags or KABINET_* environment variables
(KABINET_URL, KABINET_TOKEN, KABINET_TOKEN_FILE, ...).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Sync()
	return err
}

func init() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.url, "url", "", "GraphQL endpoint (env KABINET_URL)")
	flags.StringVar(&opts.wsURL, "ws-url", "", "GraphQL websocket endpoint, derived from --url when empty (env KABINET_WS_URL)")
	flags.StringVar(&opts.token, "token", "", "Bearer token (env KABINET_TOKEN)")
	flags.StringVar(&opts.tokenFile, "token-file", "", "File holding the bearer token, reloaded on change (env KABINET_TOKEN_FILE)")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format: table, json or yaml")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Request timeout (env KABINET_TIMEOUT)")
	flags.BoolVar(&opts.dev, "dev", false, "Enable development mode (console logging instead of JSON)")
}

// setup validates global flags and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if _, err := parseFormat(opts.output); err != nil {
		return err
	}

	l, err := logging.New(opts.logLevel, opts.dev)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

// clientConfig merges KABINET_* environment variables with the flags; flags win.
func clientConfig(ctx context.Context) (sdk.ClientConfig, error) {
	env, err := sdk.ParseEnv()
	if err != nil {
		return sdk.ClientConfig{}, err
	}
	if opts.url != "" {
		env.URL = opts.url
	}
	if opts.wsURL != "" {
		env.WSURL = opts.wsURL
	}
	if opts.token != "" {
		env.Token = opts.token
		env.TokenFile = ""
	}
	if opts.tokenFile != "" {
		env.TokenFile = opts.tokenFile
	}
	if opts.timeout > 0 {
		env.Timeout = opts.timeout
	}
	if env.UserAgent == "" {
		env.UserAgent = "kabinet-cli/" + Version
	}

	cfg, err := env.ClientConfig(ctx)
	if err != nil {
		return sdk.ClientConfig{}, err
	}
	if cfg.Endpoint == "" {
		return sdk.ClientConfig{}, fmt.Errorf("no endpoint configured: use --url or KABINET_URL")
	}
	cfg.Logger = logger
	return cfg, nil
}

// newClient builds the SDK client for the current command.
func newClient(cmd *cobra.Command) (*sdk.Client, error) {
	cfg, err := clientConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	return sdk.NewClient(cfg)
}

// withKabinet runs fn with a Kabinet client and closes it afterwards.
func withKabinet(cmd *cobra.Command, fn func(ctx context.Context, c *kabinet.Client) error) error {
	gql, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer gql.Close()
	return fn(cmd.Context(), kabinet.New(gql))
}
