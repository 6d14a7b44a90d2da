package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/reflections/internal/app"
	"github.com/MarkoPoloResearchLab/reflections/internal/httpapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	envPrefix = "REFLECTIONS"

	flagConfig         = "config"
	flagDatabaseURL    = "database-url"
	flagStoreDriver    = "store-driver"
	flagTimezone       = "timezone"
	flagLocale         = "locale"
	flagCatalog        = "catalog"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagSummaryURL     = "summary-url"
	flagSummaryAPIKey  = "summary-api-key"
	flagSummaryTimeout = "summary-timeout"
	flagSummaryRecent  = "summary-recent"
	flagWatchInterval  = "watch-interval"
	flagPrompt         = "prompt"
	flagCost           = "cost"
	flagAmount         = "amount"
	flagLimit          = "limit"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reflections: %v\n", err)
		os.Exit(1)
	}
}

type commandEnv struct {
	settings *viper.Viper
	cfg      app.Config
}

func newRootCommand() *cobra.Command {
	env := &commandEnv{settings: viper.New()}
	cmd := &cobra.Command{
		Use:           "reflections",
		Short:         "Reflection journal with streaks and a gold token economy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagConfig, "", "config file (yaml, toml or json)")
	flags.String(flagDatabaseURL, "sqlite:///tmp/reflections.db", "sqlite path/URL or postgres URL")
	flags.String(flagStoreDriver, app.DriverGorm, "state store driver: gorm, pgx or memory")
	flags.String(flagTimezone, "Local", "IANA time zone for calendar dates")
	flags.String(flagLocale, "en-US", "BCP 47 locale for display dates")
	flags.String(flagCatalog, "", "shop and prompt catalog YAML (embedded default when empty)")
	flags.String(flagListenAddr, ":8090", "HTTP listen address")
	flags.String(flagAllowedOrigins, "", "comma-separated CORS origins")
	flags.String(flagSummaryURL, "", "remote summary endpoint")
	flags.String(flagSummaryAPIKey, "", "remote summary API key")
	flags.Duration(flagSummaryTimeout, 0, "remote summary timeout")
	flags.Int(flagSummaryRecent, 0, "reflections sent for a summary")
	flags.Duration(flagWatchInterval, 0, "state poll interval of the gorm store")

	cmd.AddCommand(
		newServeCommand(env),
		newSubmitCommand(env),
		newBuyCommand(env),
		newEquipCommand(env),
		newGrantCommand(env),
		newStateCommand(env),
		newTokensCommand(env),
		newWatchCommand(env),
		newSummaryCommand(env),
		newPromptCommand(env),
		newAuditCommand(env),
	)
	return cmd
}

func (env *commandEnv) load(cmd *cobra.Command) error {
	settings := env.settings
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := settings.GetString(flagConfig); path != "" {
		settings.SetConfigFile(path)
		if err := settings.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	env.cfg = app.Config{
		DatabaseURL:    settings.GetString(flagDatabaseURL),
		StoreDriver:    settings.GetString(flagStoreDriver),
		Timezone:       settings.GetString(flagTimezone),
		Locale:         settings.GetString(flagLocale),
		CatalogPath:    settings.GetString(flagCatalog),
		ListenAddr:     settings.GetString(flagListenAddr),
		AllowedOrigins: httpapi.ParseAllowedOrigins(settings.GetString(flagAllowedOrigins)),
		SummaryURL:     settings.GetString(flagSummaryURL),
		SummaryAPIKey:  settings.GetString(flagSummaryAPIKey),
		SummaryTimeout: settings.GetDuration(flagSummaryTimeout),
		SummaryRecent:  settings.GetInt(flagSummaryRecent),
		WatchInterval:  settings.GetDuration(flagWatchInterval),
	}
	return env.cfg.Validate()
}

// withRuntime opens the journal, runs fn and releases the backend.
func (env *commandEnv) withRuntime(cmd *cobra.Command, logger *zap.Logger, fn func(ctx context.Context, runtime *app.Runtime) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runtime, err := app.Open(ctx, env.cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = runtime.Close() }()
	return fn(ctx, runtime)
}
