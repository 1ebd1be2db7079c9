// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Command carlot runs the car marketplace backend.

	carlot serve          serves the API over HTTP
	carlot lambda         serves the API as AWS Lambda behind an API Gateway HTTP API
	carlot admin create   creates a back office admin
	carlot seed           fills the brand and model catalogue with sample data

All commands read their configuration from the environment, see core/config.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/carlot/core/api"
	"github.com/relabs-tech/carlot/core/config"
	"github.com/relabs-tech/carlot/core/logger"
)

// cfg is loaded before any command runs
var cfg *config.Service

var rootCmd = &cobra.Command{
	Use:           "carlot",
	Short:         "carlot - car marketplace backend",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.InitLogger(logger.ParseLevel(cfg.LogLevel))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, lambdaCmd, adminCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
