package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/btcsuite/btclog/v2"

	"github.com/lemarier/xtra/internal/build"
	"github.com/lemarier/xtra/internal/logging"
)

// setupLogging builds the console (and, if logDir is set, rotating file)
// log sink shared by every subsystem in this demo, mirroring the
// console+file fan-out internal/build.HandlerSet is built for.
func setupLogging() (*logging.Logger, func(), error) {
	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))

	cleanup := func() {}

	if logDir != "" {
		rotator := build.NewRotatingLogWriter()
		err := rotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         logDir,
			MaxLogFiles:    maxLogFiles,
			MaxLogFileSize: maxLogFileSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf(
				"failed to init log rotator: %w", err,
			)
		}
		handlers = append(handlers, btclog.NewDefaultHandler(rotator))
		cleanup = func() { _ = rotator.Close() }
	}

	combined := build.NewHandlerSet(handlers...)
	root := logging.New(slog.New(combined))

	return root, cleanup, nil
}
