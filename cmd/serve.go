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
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/treasury-vault/tv-api/analytics"
	"github.com/treasury-vault/tv-api/common"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/data/database"
	"github.com/treasury-vault/tv-api/middleware"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/router"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("snapshot.interval_hours", "TV_SNAPSHOT_INTERVAL")
	serveCmd.Flags().Int("snapshot-interval", 1, "Hours between NAV snapshot runs")
	viper.BindPFlag("snapshot.interval_hours", serveCmd.Flags().Lookup("snapshot-interval"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tv-api server",
	Long:  `Run HTTP server that implements the Treasury Vault analytics API`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile.out")
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal().Err(err).Msg("failed to close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("failed to start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		traceShutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Warn().Err(err).Msg("opentelemetry disabled")
		} else {
			defer func() {
				if err := traceShutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("error shutting down trace provider")
				}
			}()
		}

		// setup database
		if err := database.Connect(); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		// data manager joins the company store with the crypto quote feed
		manager := data.NewManager()
		svc := analytics.NewService(manager, policy.Load())

		// Create new Fiber instance
		app := fiber.New(fiber.Config{
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		})

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("fiber shutdown failed")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Setup routes
		router.SetupRoutes(app, svc, manager)

		// Record NAV snapshots for all tracked companies on a schedule.
		// Digital-asset treasuries mark 24/7 so there is no exchange calendar.
		scheduler := gocron.NewScheduler(time.UTC)
		scheduler.Every(viper.GetInt("snapshot.interval_hours")).Hours().Do(func() {
			svc.RecordNavSnapshots(context.Background())
		})
		scheduler.StartAsync()

		// Start server
		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	},
}
