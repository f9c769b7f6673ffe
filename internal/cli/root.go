// Package cli implements the tosctl commands.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tosctl/internal/models"
	"tosctl/internal/providers"
	"tosctl/internal/services"
	"tosctl/internal/structures"
	"tosctl/internal/tos"
)

// App wires the engine into the cobra command tree.
type App struct {
	conf     *structures.Config
	env      *structures.EnvContext
	logger   providers.Logger
	service  services.ToSServiceInterface
	workflow *services.Workflow
	printer  *ConsolePrinter
	root     *cobra.Command

	flagChannels     []string
	flagToSRoot      string
	flagSite         bool
	flagSystem       bool
	flagUser         bool
	flagEnv          bool
	flagCacheTimeout time.Duration
	flagIgnoreCache  bool
	flagJSON         bool
	flagVerbose      bool
	flagAutoAccept   bool
	flagYes          bool
}

func NewApp(
	conf *structures.Config,
	env *structures.EnvContext,
	logger providers.Logger,
	service services.ToSServiceInterface,
	workflow *services.Workflow,
) *App {
	app := &App{
		conf:     conf,
		env:      env,
		logger:   logger,
		service:  service,
		workflow: workflow,
		printer:  NewConsolePrinter(),
	}
	app.root = app.buildCommands()
	return app
}

func (a *App) Execute() error {
	return a.root.Execute()
}

func (a *App) buildCommands() *cobra.Command {
	root := &cobra.Command{
		Use:   "tosctl",
		Short: "View, accept, and reject channel Terms of Service",
		Long: "tosctl tracks the Terms of Service of content channels. Channels " +
			"publishing a Terms of Service need an acceptance before use; a " +
			"rejected Terms of Service blocks the channel until re-accepted.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			a.env.JSONMode = a.flagJSON
		},
		RunE: a.runList,
	}

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&a.flagChannels, "channel", "c", nil, "Additional channels to check (repeatable)")
	flags.DurationVar(&a.flagCacheTimeout, "cache-timeout", a.conf.Cache.Timeout, "Cache timeout to check for Terms of Service updates")
	flags.BoolVar(&a.flagIgnoreCache, "ignore-cache", false, "Ignore the cache and always check for updates")
	flags.BoolVar(&a.flagJSON, "json", false, "Report all output as JSON")
	flags.BoolVarP(&a.flagVerbose, "verbose", "v", false, "Verbose output")

	a.addLocationFlags(root)

	root.AddCommand(
		a.buildAcceptCmd(),
		a.buildRejectCmd(),
		a.buildViewCmd(),
		a.buildInteractiveCmd(),
		a.buildInfoCmd(),
		a.buildCleanCmd(),
	)
	return root
}

func (a *App) addLocationFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.flagToSRoot, "tos-root", "", "Custom acceptance storage location")
	flags.BoolVar(&a.flagSite, "site", false, "Use the site-wide storage location")
	flags.BoolVar(&a.flagSystem, "system", false, "Use the installation storage location")
	flags.BoolVar(&a.flagUser, "user", false, "Use the user storage location")
	flags.BoolVar(&a.flagEnv, "env", false, "Use the environment storage location")
	cmd.MarkFlagsMutuallyExclusive("tos-root", "site", "system", "user", "env")
}

// tosRoot resolves the effective write root from the location flags,
// falling back to the configured default.
func (a *App) tosRoot() string {
	switch {
	case a.flagToSRoot != "":
		return a.flagToSRoot
	case a.flagSite:
		return tos.SiteToSRoot
	case a.flagSystem:
		return tos.SystemToSRoot
	case a.flagUser:
		return tos.UserToSRoot
	case a.flagEnv:
		return tos.EnvToSRoot
	default:
		return a.conf.Storage.ToSRoot
	}
}

func (a *App) cacheTimeout() time.Duration {
	if a.flagIgnoreCache {
		return 0
	}
	return a.flagCacheTimeout
}

// channels merges configured and flag-provided channels.
func (a *App) channels() ([]models.Channel, error) {
	raws := append(append([]string{}, a.conf.Channels...), a.flagChannels...)
	if len(raws) == 0 {
		return nil, fmt.Errorf("no channels configured; pass --channel or set channels in %s", a.conf.Path)
	}
	return models.ParseChannels(raws...)
}
