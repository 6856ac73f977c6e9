package main

import (
	"os"

	"github.com/platformbuilds/ga4-insights/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
