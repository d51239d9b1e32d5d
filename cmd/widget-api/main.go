// Command widget-api serves the widget catalog HTTP API.
//
//	@title			Widget API
//	@version		1.0
//	@description	Widget catalog and account API with a centralized error pipeline.
//	@BasePath		/api/v1
package main

import (
	"os"

	"github.com/tbourn/go-widget-api/cmd/widget-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
