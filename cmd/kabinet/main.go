// Command kabinet talks to Kabinet, Kuay and Konviktion GraphQL services
// and runs a local development server.
package main

import (
	"os"

	"kabinet.io/kabinet/cmd/kabinet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
