package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/server"
)

var serveFlags struct {
	listen     string
	db         string
	secret     string
	insecure   bool
	seed       string
	watchSeed  bool
	logFormat  string
	cors       []string
	printToken bool
	tokenTTL   time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local development server",
	Long: `Run a local server that answers the Kabinet, Kuay and Konviktion
operations the SDK sends, backed by SQLite and a YAML seed fixture.

Settings come from KABINET_SERVER_* environment variables; flags override them.`,
	Example: `  kabinet serve --insecure
  kabinet serve --db kabinet.db --seed dev.yaml --watch-seed --print-token`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := server.ConfigFromEnv()
		if err != nil {
			return err
		}

		f := cmd.Flags()
		if f.Changed("listen") {
			cfg.ListenAddr = serveFlags.listen
		}
		if f.Changed("db") {
			cfg.DBPath = serveFlags.db
		}
		if f.Changed("secret") {
			cfg.Secret = serveFlags.secret
		}
		if f.Changed("insecure") {
			cfg.Insecure = serveFlags.insecure
		}
		if f.Changed("seed") {
			cfg.SeedFile = serveFlags.seed
		}
		if f.Changed("watch-seed") {
			cfg.WatchSeed = serveFlags.watchSeed
		}
		if f.Changed("log-format") {
			cfg.LogFormat = serveFlags.logFormat
		}
		if f.Changed("cors") {
			cfg.CORSOrigins = serveFlags.cors
		}
		if rf := cmd.Root().PersistentFlags(); rf.Changed("log-level") {
			cfg.LogLevel = opts.logLevel
		}
		cfg.Version = Version

		if err := cfg.Validate(); err != nil {
			return err
		}
		srvLogger, err := logging.NewLogger(cfg.Logging())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer srvLogger.Sync()

		srv, err := server.New(cmd.Context(), cfg, srvLogger)
		if err != nil {
			return err
		}
		defer srv.Close()

		if serveFlags.printToken {
			tok, err := srv.IssueToken("dev", serveFlags.tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "KABINET_TOKEN=%s\n", tok)
		}

		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", ":8080", "Address to listen on")
	f.StringVar(&serveFlags.db, "db", ":memory:", "SQLite database path")
	f.StringVar(&serveFlags.secret, "secret", "", "Token signing secret")
	f.BoolVar(&serveFlags.insecure, "insecure", false, "Accept unauthenticated requests")
	f.StringVar(&serveFlags.seed, "seed", "", "YAML seed fixture, the built-in fixture when empty")
	f.BoolVar(&serveFlags.watchSeed, "watch-seed", false, "Re-apply the seed fixture when it changes")
	f.StringVar(&serveFlags.logFormat, "log-format", "console", "Log format (json, console)")
	f.StringSliceVar(&serveFlags.cors, "cors", nil, "Allowed CORS origins")
	f.BoolVar(&serveFlags.printToken, "print-token", false, "Print a development token to stderr")
	f.DurationVar(&serveFlags.tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the printed token")
}
