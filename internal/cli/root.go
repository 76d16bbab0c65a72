package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/breakthrough-cafe/cafe-cms/internal/bus"
	"github.com/breakthrough-cafe/cafe-cms/internal/client"
	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/breakthrough-cafe/cafe-cms/internal/mirror"
	"github.com/breakthrough-cafe/cafe-cms/internal/swr"
	"github.com/breakthrough-cafe/cafe-cms/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also a persistent flag and, upper-cased with
// a CAFE_ prefix, an environment variable.
const (
	keyAPIURL      = "api-url"
	keyAPIToken    = "api-token"
	keyLang        = "lang"
	keyMirrorPath  = "mirror-path"
	keyDedupWindow = "dedup-window"
	keyTimeout     = "http-timeout"
	keyOutput      = "output"
	keyVerbose     = "verbose"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string

	v   *viper.Viper
	app *App
}

// App is the per-invocation client stack built from configuration
type App struct {
	Client  *client.Client
	Hooks   *client.Hooks
	Cache   *swr.Cache
	Bus     *bus.Bus
	Mirror  mirror.Store
	Printer *Printer
	Log     zerolog.Logger
}

// Close releases the cache and the mirror
func (a *App) Close() error {
	return errors.Join(a.Cache.Close(), a.Mirror.Close())
}

// NewRootCommand creates the root command for cafectl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "cafectl",
		Short:         "cafectl - Breakthrough Cafe content tool",
		Long:          "Manage articles and categories of the Breakthrough Cafe CMS API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	defaults := config.LoadClient()

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default $HOME/.cafectl.yaml)")
	flags.String(keyAPIURL, defaults.BaseURL, "API base URL")
	flags.String(keyAPIToken, defaults.Token, "bearer token for write requests")
	flags.String(keyLang, defaults.Language, "display language (zh|en)")
	flags.String(keyMirrorPath, defaults.MirrorPath, "SQLite file for the local mirror (empty keeps it in memory)")
	flags.Duration(keyDedupWindow, defaults.DedupWindow, "reuse responses younger than this")
	flags.Duration(keyTimeout, defaults.Timeout, "HTTP request timeout")
	flags.StringP(keyOutput, "o", FormatText, "output format (text|json|yaml)")
	flags.BoolP(keyVerbose, "v", false, "verbose logging to stderr")

	// Add subcommands
	cmd.AddCommand(NewArticlesCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// setup layers flags over environment over the config file, then builds the App
func (o *RootOptions) setup(cmd *cobra.Command) error {
	v := o.v
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return WrapExitError(ExitCommandError, "failed to bind flags", err)
	}
	v.SetEnvPrefix("CAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".cafectl")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.ConfigFile != "" || !errors.As(err, &notFound) {
			return WrapExitError(ExitCommandError, "failed to read config", err)
		}
	}

	format := v.GetString(keyOutput)
	if !isValidFormat(format) {
		return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid output %q: must be one of %v", format, ValidFormats)}
	}
	lang := v.GetString(keyLang)
	if lang != "zh" && lang != "en" {
		return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid lang %q: must be zh or en", lang)}
	}

	level := "warn"
	if v.GetBool(keyVerbose) {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level, "pretty")

	store, err := mirror.Open(v.GetString(keyMirrorPath))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open mirror", err)
	}

	session := client.Session{Language: lang, Token: v.GetString(keyAPIToken)}
	b := bus.New(log)
	c := client.New(client.Options{
		BaseURL:    v.GetString(keyAPIURL),
		Session:    session,
		HTTPClient: &http.Client{Timeout: v.GetDuration(keyTimeout)},
		Bus:        b,
	}, log)
	cache := swr.New(swr.Options{
		DedupWindow:  v.GetDuration(keyDedupWindow),
		FetchTimeout: v.GetDuration(keyTimeout),
		Mirror:       store,
		Bus:          b,
	}, log)

	o.app = &App{
		Client:  c,
		Hooks:   client.NewHooks(c, cache),
		Cache:   cache,
		Bus:     b,
		Mirror:  store,
		Printer: &Printer{Format: format, Writer: cmd.OutOrStdout(), Session: session},
		Log:     log,
	}
	return nil
}

// run adapts fn to a cobra RunE that releases the App when fn returns
func (o *RootOptions) run(fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app := o.app
		defer func() {
			if err := app.Close(); err != nil {
				app.Log.Warn().Err(err).Msg("Failed to close client stack")
			}
		}()
		return fn(cmd.Context(), app, args)
	}
}
