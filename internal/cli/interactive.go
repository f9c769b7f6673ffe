package cli

import (
	"github.com/spf13/cobra"

	"tosctl/internal/services"
)

func (a *App) buildInteractiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Interactively accept, reject, or view pending Terms of Service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channels, err := a.channels()
			if err != nil {
				return err
			}

			opts := services.WorkflowOptions{
				ToSRoot:      a.tosRoot(),
				CacheTimeout: a.cacheTimeout(),
				AutoAccept:   a.flagAutoAccept || a.conf.Workflow.AutoAccept,
				AlwaysYes:    a.flagYes || a.conf.Workflow.AlwaysYes,
				JSONMode:     a.flagJSON,
				Verbose:      a.flagVerbose,
			}
			_, err = a.workflow.Run(cmd.Context(), channels, opts, a.printer)
			return err
		},
	}
	cmd.Flags().BoolVar(&a.flagAutoAccept, "auto-accept", false, "Accept all pending Terms of Service without prompting")
	cmd.Flags().BoolVarP(&a.flagYes, "yes", "y", false, "Assume yes for host prompts; Terms of Service still require explicit acceptance")
	return cmd
}
