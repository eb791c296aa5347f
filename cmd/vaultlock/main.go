package main

import (
	"fmt"
	"os"

	"github.com/openvault/vaultlock/internal/config"
)

// Version information - injected at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	versionInfo := config.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	root, app := NewRootCmd(versionInfo, os.Stdout, os.Stderr)

	err := root.Execute()
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
