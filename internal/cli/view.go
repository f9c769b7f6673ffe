package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tosctl/internal/services"
	"tosctl/internal/tos"
)

func (a *App) buildViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "View the Terms of Service text for all configured channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channels, err := a.channels()
			if err != nil {
				return err
			}

			jsonOutput := make(map[string]interface{}, len(channels))
			for _, channel := range channels {
				pair, err := a.service.Reconcile(cmd.Context(), channel, a.tosRoot(), a.cacheTimeout())
				if err != nil {
					if errors.Is(err, tos.ErrMissing) {
						jsonOutput[channel.BaseURL()] = nil
						a.printer.Print(fmt.Sprintf("no Terms of Service for %s", channel), services.StylePlain)
						continue
					}
					return err
				}
				jsonOutput[channel.BaseURL()] = pair.Latest()
				a.printer.Print(fmt.Sprintf("viewing Terms of Service for %s:", channel), services.StylePlain)
				a.printer.Print(pair.LatestText(), services.StylePlain)
			}

			if a.flagJSON {
				a.printer.PrintJSON(jsonOutput)
			}
			return nil
		},
	}
}
