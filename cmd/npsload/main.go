// Command npsload bulk loads a survey CSV export into the response store.
package main

import (
	"os"

	"github.com/godilite/nps-insights/internal/ingest/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
