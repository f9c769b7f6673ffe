package main

import (
	"fmt"
	"os"

	"tosctl/internal/di"
	"tosctl/internal/structures"
)

func main() {
	flags := &structures.CliFlags{
		ConfigPath: os.Getenv("TOSCTL_CONFIG"),
		DebugMode:  os.Getenv("TOSCTL_DEBUG") != "",
	}

	app, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tosctl: %v\n", err)
		os.Exit(1)
	}

	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
