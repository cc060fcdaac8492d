package main

import "request-tracker/internal/config"

func main() {
	if err := rootCmd.Execute(); err != nil {
		config.Exitf("%v", err)
	}
}
