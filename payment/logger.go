package payment

import (
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
)

var _ stripe.LeveledLoggerInterface = leveledLogger{}

// leveledLogger routes stripe-go client logs into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }

func (l leveledLogger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }

func (l leveledLogger) Infof(format string, v ...interface{}) { l.logger.Info().Msgf(format, v...) }

func (l leveledLogger) Warnf(format string, v ...interface{}) { l.logger.Warn().Msgf(format, v...) }
