package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
)

func runMigrate(c context.Context, cfg *config.Config, direction infra.MigrationDirection) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppMigrate).
		Str(log.KeyTag, "main runMigrate").
		Str(log.KeyMigrationDirection, string(direction)).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "migrating database").Logger()
	logger.Info().Msg("migrating database")
	if err := infra.Migrate(c, cfg.Database, direction); err != nil {
		err = fmt.Errorf("failed migrating database with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("migrated database")

	return nil
}
