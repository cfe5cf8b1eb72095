package main

import (
	"errors"
	"os"

	"zte.szuro.net/internal/cli"
	"zte.szuro.net/internal/config"
)

func main() {
	root := cli.NewRootCmd()
	root.Version = config.Version

	if err := root.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
