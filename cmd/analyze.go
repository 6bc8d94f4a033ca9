// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/treasury-vault/tv-api/analytics"
	"github.com/treasury-vault/tv-api/common"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/data/database"
	"github.com/treasury-vault/tv-api/policy"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var compare bool

func init() {
	analyzeCmd.Flags().BoolVar(&compare, "compare", false, "Run comparative analytics across the given tickers")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:        "analyze [flags] TICKER...",
	Short:      "Compute analytics for one or more treasury companies",
	Args:       cobra.MinimumNArgs(1),
	ArgAliases: []string{"TICKER"},
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()

		// setup database
		if err := database.Connect(); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		tickers := make([]string, len(args))
		for ii, arg := range args {
			tickers[ii] = strings.ToUpper(arg)
		}

		manager := data.NewManager()
		svc := analytics.NewService(manager, policy.Load())
		ctx := context.Background()

		if compare {
			result, err := svc.ComparativeAnalytics(ctx, tickers)
			if err != nil {
				log.Fatal().Err(err).Strs("Tickers", tickers).Msg("comparative analytics failed")
			}
			printJSON(result)
			return
		}

		for _, ticker := range tickers {
			result, err := svc.ComprehensiveAnalytics(ctx, ticker)
			if err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("analytics failed")
				continue
			}
			printJSON(result)
		}
	},
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("could not marshal result")
	}
	fmt.Println(string(raw))
}
