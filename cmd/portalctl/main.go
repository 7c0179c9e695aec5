// Command portalctl runs maintenance tasks against the portal database.
package main

import (
	"os"

	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
)

func main() {
	observability.InitLogger("portalctl", os.Getenv("APP_ENV"))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
