package main

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kdsmith18542/tmplkit/i18n"
	"github.com/kdsmith18542/tmplkit/internal/config"
	"github.com/kdsmith18542/tmplkit/internal/logging"
	"github.com/kdsmith18542/tmplkit/observability"
)

var errNoSources = errors.New("no message sources configured (use --source or sources in the config file)")

// app carries the resolved configuration between the root command and its
// subcommands.
type app struct {
	configPath    string
	defaultLocale string
	sources       []string
	templates     []string
	logLevel      string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "tmplkit",
		Short: "Inspect, check and serve localized message bundles and templates",
		Long: `tmplkit loads message bundles from prioritised sources (directories,
s3://, gs:// or azblob:// locations), derives the messages for a locale
or Accept-Language header, and serves templates rendered with them.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a TOML config file (default $"+config.EnvConfigFile+")")
	flags.StringVar(&a.defaultLocale, "default-locale", "", "Locale every other locale falls back to")
	flags.StringArrayVarP(&a.sources, "source", "s", nil, "Message source, lowest priority first (repeatable)")
	flags.StringArrayVarP(&a.templates, "templates", "t", nil, "Template directory, lowest priority first (repeatable)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newBundleCmd(a),
		newMessagesCmd(a),
		newLocalesCmd(a),
		newMissingCmd(a),
		newLintCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// setup loads the config file and lets explicitly set flags override it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("default-locale") {
		cfg.DefaultLocale = a.defaultLocale
	}
	if flags.Changed("source") {
		cfg.Sources = a.sources
	}
	if flags.Changed("templates") {
		cfg.Templates = a.templates
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if err := observability.Init(cfg.Observability); err != nil {
		return err
	}
	if cfg.Observability.EnableTracing || cfg.Observability.EnableMetrics {
		i18n.EnableObservability()
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) messageSources() (i18n.Sources, error) {
	if len(a.cfg.Sources) == 0 {
		return nil, errNoSources
	}
	return i18n.Dirs(a.cfg.Sources...), nil
}

func (a *app) loaderOptions() []i18n.Option {
	return []i18n.Option{
		i18n.WithLogger(a.logger),
		i18n.WithDefaultLocale(a.cfg.DefaultLocale),
	}
}
