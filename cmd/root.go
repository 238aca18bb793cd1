// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/fincanon/fc-api/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Logging configuration
	if err := viper.BindEnv("log.level", "FC_LOG_LEVEL"); err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}

	if err := viper.BindEnv("log.report_caller", "FC_LOG_REPORT_CALLER"); err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	if err := viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller")); err != nil {
		panic(err)
	}

	if err := viper.BindEnv("log.output", "FC_LOG_OUTPUT"); err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	if err := viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output")); err != nil {
		panic(err)
	}

	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print logs in a human readable console format")
	if err := viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty")); err != nil {
		panic(err)
	}

	// Tracing
	if err := viper.BindEnv("otlp.endpoint", "OTLP_ENDPOINT"); err != nil {
		panic(err)
	}
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP trace collector endpoint, if blank tracing is disabled")
	if err := viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint")); err != nil {
		panic(err)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fcapi",
	Version: common.CurrentVersion.String(),
	Short:   "FinCanon computes portfolio performance and risk analytics",
	Long: `FinCanon analyzes portfolios of daily asset returns: summary risk/return
statistics, rolling metrics, correlations, and mean-variance optimal
portfolios along the efficient frontier.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
