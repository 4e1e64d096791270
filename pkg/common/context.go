package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/logger"
	"github.com/nvitorovic/scaffold-eth-2/pkg/common/progress"
)

// Embedded release version, set with -ldflags at build time
var embeddedReleaseVersion = "Development"

// WithShutdown creates a new context that will be cancelled on SIGTERM/SIGINT
func WithShutdown(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		signal.Stop(sigChan)
		cancel()
		_, _ = fmt.Fprintln(os.Stderr, "caught interrupt, shutting down gracefully.")
	}()

	return ctx
}

type appEnvironmentContextKey struct{}

type AppEnvironment struct {
	CLIVersion string
	OS         string
	Arch       string
	RunID      string
}

func NewAppEnvironment(os string, arch string, runID string) *AppEnvironment {
	return &AppEnvironment{
		CLIVersion: embeddedReleaseVersion,
		OS:         os,
		Arch:       arch,
		RunID:      runID,
	}
}

// WithAppEnvironment stores a fresh AppEnvironment with a random run id on the cli context.
func WithAppEnvironment(ctx *cli.Context) {
	ctx.Context = withAppEnvironment(ctx.Context, NewAppEnvironment(
		runtime.GOOS,
		runtime.GOARCH,
		uuid.New().String(),
	))
}

func withAppEnvironment(ctx context.Context, appEnvironment *AppEnvironment) context.Context {
	return context.WithValue(ctx, appEnvironmentContextKey{}, appEnvironment)
}

func AppEnvironmentFromContext(ctx context.Context) (*AppEnvironment, bool) {
	env, ok := ctx.Value(appEnvironmentContextKey{}).(*AppEnvironment)
	return env, ok
}

type loggerContextKey struct{}
type progressTrackerContextKey struct{}

func WithLogger(ctx context.Context, log iface.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// LoggerFromContext returns the logger stored on ctx, or a basic logger when none is set.
func LoggerFromContext(ctx context.Context) iface.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(iface.Logger); ok {
		return log
	}
	return logger.NewLogger(false)
}

func WithProgressTracker(ctx context.Context, tracker iface.ProgressTracker) context.Context {
	return context.WithValue(ctx, progressTrackerContextKey{}, tracker)
}

func ProgressTrackerFromContext(ctx context.Context) iface.ProgressTracker {
	if tracker, ok := ctx.Value(progressTrackerContextKey{}).(iface.ProgressTracker); ok {
		return tracker
	}
	return progress.NewLogProgressTracker(10, LoggerFromContext(ctx))
}
