package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tosctl/internal/services"
)

func (a *App) buildCleanCmd() *cobra.Command {
	var cleanCache, cleanToS, cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cache files and/or stored acceptances",
		RunE: func(_ *cobra.Command, _ []string) error {
			if cleanAll {
				cleanCache, cleanToS = true, true
			}
			if !cleanCache && !cleanToS {
				return fmt.Errorf("nothing to clean; pass --cache, --tos, or --all")
			}

			var removed []string
			if cleanCache {
				removed = append(removed, a.service.CleanCache()...)
			}
			if cleanToS {
				removed = append(removed, a.service.CleanToS(a.tosRoot())...)
			}

			if a.flagJSON {
				a.printer.PrintJSON(map[string]interface{}{"removed": removed})
				return nil
			}
			for _, path := range removed {
				a.printer.Print(fmt.Sprintf("removed %s", path), services.StylePlain)
			}
			a.printer.Print(fmt.Sprintf("%d file(s) removed", len(removed)), services.StyleSuccess)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cleanCache, "cache", false, "Remove all cache files")
	cmd.Flags().BoolVar(&cleanToS, "tos", false, "Remove all acceptances/rejections")
	cmd.Flags().BoolVar(&cleanAll, "all", false, "Invoke both --cache and --tos")
	return cmd
}
