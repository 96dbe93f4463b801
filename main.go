package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(0)

	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
