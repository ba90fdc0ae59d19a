package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	notificationCmd "github.com/Alturino/storefront/notification/cmd"
)

func Start() {
	logger := log.Get(fmt.Sprintf("/var/log/%s.log", constants.AppStorefront), os.Getenv("STOREFRONT_APPLICATION_ENV")).
		With().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	configName := constants.AppStorefront
	rootCmd := &cobra.Command{Use: constants.AppStorefront, SilenceUsage: true}
	rootCmd.PersistentFlags().StringVar(&configName, "config", configName, "config file name inside ./env without extension")

	commands := []*cobra.Command{
		{
			Use:   "serve",
			Short: "Run the http api and the outbox relay",
			Run: func(cmd *cobra.Command, args []string) {
				runServe(cmd.Context(), config.Get(cmd.Context(), configName))
			},
		},
		{
			Use:   "notification",
			Short: "Run the order event consumer sending emails",
			Run: func(cmd *cobra.Command, args []string) {
				notificationCmd.RunNotification(cmd.Context(), config.Get(cmd.Context(), configName))
			},
		},
		{
			Use:       "migrate [up|down]",
			Short:     "Apply or revert database migrations",
			ValidArgs: []string{string(infra.MigrationUp), string(infra.MigrationDown)},
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(
					cmd.Context(),
					config.Get(cmd.Context(), configName),
					infra.MigrationDirection(args[0]),
				)
			},
		},
	}
	rootCmd.AddCommand(commands...)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
