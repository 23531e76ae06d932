// Package logging sets up the process-wide zerolog logger: a console
// sink plus a rotating file sink, matching the teacher's dual-sink setup.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init. RunID and Slot, when non-empty/non-zero, are
// attached to every log line so a slot's entries can be grepped out of a
// shared log stream.
type Options struct {
	LogDir  string
	Verbose bool
	RunID   string
	Slot    int
}

// Init initializes the global zerolog logger with dual sinks: os.Stderr
// and a rotating file under opts.LogDir.
func Init(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339Nano,
		NoColor:    !isTerminal,
	}

	logDir := opts.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: create log directory %q: %w", logDir, err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "inference-slot.log"),
		MaxSize:    64, // megabytes
		MaxBackups: 16,
		MaxAge:     90, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)

	ctx := zerolog.New(multi).With().Timestamp()
	if opts.RunID != "" {
		ctx = ctx.Str("run_id", opts.RunID)
	}
	if opts.Slot != 0 {
		ctx = ctx.Int("slot", opts.Slot)
	}
	log.Logger = ctx.Logger()

	log.Info().Msg("logging initialized")
	return nil
}
