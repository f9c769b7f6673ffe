package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tosctl/internal/services"
)

const nullChar = "-"

const outdatedNote = "* Terms of Service version(s) are outdated."

// runList is the default command: one row per channel with version,
// decision, and support classification. The location column is shown with
// --verbose.
func (a *App) runList(cmd *cobra.Command, _ []string) error {
	channels, err := a.channels()
	if err != nil {
		return err
	}

	listings, err := a.service.ListAll(cmd.Context(), channels, a.tosRoot(), a.cacheTimeout())
	if err != nil {
		return err
	}

	jsonOutput := make(map[string]interface{}, len(listings))
	var rows []string
	outdated := false
	for _, listing := range listings {
		base := listing.Channel.BaseURL()
		if listing.Pair == nil {
			jsonOutput[base] = nil
			rows = append(rows, a.row(base, nullChar, nullChar, nullChar, nullChar))
			continue
		}

		pair := listing.Pair
		version := pair.Version().Format(time.RFC3339)
		if pair.Outdated() {
			version += " *"
			outdated = true
		}
		accepted := nullChar
		location := nullChar
		var support string
		if pair.Decided() {
			accepted = "rejected"
			if pair.Accepted() {
				accepted = "accepted"
			}
			support = pair.Local.Support
			location = pair.Path
		} else {
			support = pair.Remote.Support
		}
		rows = append(rows, a.row(base, version, accepted, support, location))

		entry := map[string]interface{}{
			"version":  pair.Version(),
			"outdated": pair.Outdated(),
			"support":  support,
		}
		if pair.Decided() {
			entry["tos_accepted"] = pair.Accepted()
			entry["path"] = pair.Path
		}
		jsonOutput[base] = entry
	}

	if a.flagJSON {
		a.printer.PrintJSON(jsonOutput)
		return nil
	}
	a.printer.Print(a.row("Channel", "Version", "Accepted", "Support", "Location"), services.StylePlain)
	for _, r := range rows {
		a.printer.Print(r, services.StylePlain)
	}
	if outdated {
		a.printer.Print(outdatedNote, services.StyleWarning)
	}
	return nil
}

func (a *App) row(columns ...string) string {
	if !a.flagVerbose {
		columns = columns[:4]
	}
	return strings.Join(columns, "\t")
}
