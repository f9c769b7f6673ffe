package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tosctl/internal/services"
	"tosctl/internal/tos"
)

func (a *App) buildAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Accept the Terms of Service for all configured channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDecision(cmd, true)
		},
	}
}

func (a *App) buildRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject",
		Short: "Reject the Terms of Service for all configured channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDecision(cmd, false)
		},
	}
}

func (a *App) runDecision(cmd *cobra.Command, accepted bool) error {
	channels, err := a.channels()
	if err != nil {
		return err
	}

	verb := "rejected"
	decide := a.service.Reject
	if accepted {
		verb = "accepted"
		decide = a.service.Accept
	}

	jsonOutput := make(map[string]interface{}, len(channels))
	for _, channel := range channels {
		pair, err := decide(cmd.Context(), channel, a.tosRoot(), a.cacheTimeout())
		if err != nil {
			if errors.Is(err, tos.ErrMissing) {
				jsonOutput[channel.BaseURL()] = nil
				a.printer.Print(fmt.Sprintf("Terms of Service not found for %s", channel), services.StylePlain)
				continue
			}
			return err
		}
		jsonOutput[channel.BaseURL()] = pair.Local
		a.printer.Print(fmt.Sprintf("%s Terms of Service for %s", verb, channel), services.StylePlain)
	}

	if a.flagJSON {
		a.printer.PrintJSON(jsonOutput)
	}
	return nil
}
