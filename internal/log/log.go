package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Get builds the process logger once. Files always receive JSON; development prints a
// human-readable stream to stdout.
func Get(filepath string, env string) zerolog.Logger {
	once.Do(func() {
		zerolog.DurationFieldUnit = time.Microsecond
		zerolog.ErrorFieldName = "error"
		zerolog.ErrorStackFieldName = "stack-trace"
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.LevelFieldName = "level"
		zerolog.MessageFieldName = "message"
		zerolog.TimestampFieldName = "timestamp"

		logLevel := zerolog.InfoLevel
		var stdout io.Writer = os.Stdout
		if env == "development" {
			logLevel = zerolog.TraceLevel
			stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}

		fileWriter := &lumberjack.Logger{
			Filename:   filepath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		output := zerolog.MultiLevelWriter(stdout, fileWriter)

		logger = zerolog.New(output).
			Level(logLevel).
			Hook(TraceHook()).
			With().
			Timestamp().
			Caller().
			Stack().
			Int("pid", os.Getpid()).
			Int("gid", os.Getgid()).
			Int("uid", os.Getuid()).
			Logger()

		logger.Info().
			Str(KeyTag, "log Get").
			Str(KeyProcess, "initializing logger").
			Msg("initialized logger")
	})
	return logger
}
