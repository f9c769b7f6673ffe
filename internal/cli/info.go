package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tosctl/internal/services"
)

func (a *App) buildInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display the acceptance search path and cache directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			cacheDir := a.service.CacheDir()
			if home, err := os.UserHomeDir(); err == nil {
				if rel, err := filepath.Rel(home, cacheDir); err == nil && !strings.HasPrefix(rel, "..") {
					cacheDir = filepath.Join("~", rel)
				}
			}

			if a.flagJSON {
				a.printer.PrintJSON(map[string]interface{}{
					"search_path": a.service.SearchPath(),
					"cache_dir":   cacheDir,
				})
				return nil
			}

			a.printer.Print("Search path:", services.StylePlain)
			for _, root := range a.service.SearchPath() {
				a.printer.Print(fmt.Sprintf("  - %s", root), services.StylePlain)
			}
			a.printer.Print(fmt.Sprintf("Cache dir: %s", cacheDir), services.StylePlain)
			return nil
		},
	}
}
