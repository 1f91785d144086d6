// Command credencectl runs administrative tasks against the configured
// backend: schema migration, base-prior backfill, recompute, accuracy and
// demo seeding.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
