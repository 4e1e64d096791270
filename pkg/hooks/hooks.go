package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common"
	"github.com/nvitorovic/scaffold-eth-2/pkg/telemetry"
)

// EnvFile is the name of the environment file
const EnvFile = ".env"

// CommandMetrics holds timing and metadata for command execution
type CommandMetrics struct {
	StartTime time.Time
	Command   string
	Flags     map[string]interface{}
}

// contextKey is used to store command metrics in context
type contextKey struct{}

// CommandPrefix is the prefix to apply to all command names
const CommandPrefix = "se2_"

// newTelemetryClient is replaced in tests
var newTelemetryClient = setupTelemetry

func getFlagValue(ctx *cli.Context, name string) interface{} {
	if !ctx.IsSet(name) {
		return nil
	}

	if ctx.Bool(name) {
		return ctx.Bool(name)
	}
	if ctx.String(name) != "" {
		return ctx.String(name)
	}
	if v := ctx.StringSlice(name); len(v) > 0 {
		return v
	}
	if ctx.Int(name) != 0 {
		return ctx.Int(name)
	}
	return nil
}

func collectFlagValues(ctx *cli.Context) map[string]interface{} {
	flags := make(map[string]interface{})

	// App-level flags
	if ctx.App != nil {
		for _, flag := range ctx.App.Flags {
			flagName := flag.Names()[0]
			if ctx.IsSet(flagName) {
				flags[flagName] = getFlagValue(ctx, flagName)
			}
		}
	}

	// Command-level flags
	if ctx.Command != nil {
		for _, flag := range ctx.Command.Flags {
			flagName := flag.Names()[0]
			if ctx.IsSet(flagName) {
				flags[flagName] = getFlagValue(ctx, flagName)
			}
		}
	}

	return flags
}

func setupTelemetry(ctx *cli.Context) telemetry.Client {
	cfg, err := common.LoadConfig(ctx.String("config"))
	if err != nil || !cfg.Telemetry.Enabled {
		return telemetry.NewNoopClient()
	}

	props := telemetry.NewProperties(ctx.App.Version, runtime.GOOS, runtime.GOARCH, "")
	if env, ok := common.AppEnvironmentFromContext(ctx.Context); ok {
		props = telemetry.NewProperties(env.CLIVersion, env.OS, env.Arch, env.RunID)
	}

	phClient, _ := telemetry.NewPostHogClient(props, cfg.Telemetry.PostHogAPIKey)
	if phClient != nil {
		return phClient
	}

	// no client available, return noop client which means telemetry is disabled
	return telemetry.NewNoopClient()
}

func MetricsFromContext(ctx context.Context) (CommandMetrics, bool) {
	metrics, ok := ctx.Value(contextKey{}).(CommandMetrics)
	if metrics.Command == "" {
		return CommandMetrics{}, false
	}
	return metrics, ok
}

func WithCommandMetrics(ctx context.Context, metrics CommandMetrics) context.Context {
	return context.WithValue(ctx, contextKey{}, metrics)
}

func FormatEventName(command, action string) string {
	return fmt.Sprintf("cli.%s%s.%s", CommandPrefix, command, action)
}

// Track sends an event through the client stored on ctx, if any.
func Track(ctx context.Context, name string, props map[string]interface{}) error {
	client, ok := telemetry.FromContext(ctx)
	if !ok {
		return nil
	}
	return client.Track(ctx, name, props)
}

// FormatCustomMetric names an event under the command currently running.
func FormatCustomMetric(ctx context.Context, metricPath string) string {
	metrics, ok := MetricsFromContext(ctx)
	if !ok {
		return fmt.Sprintf("cli.%sunknown.%s", CommandPrefix, metricPath)
	}
	return fmt.Sprintf("cli.%s%s.%s", CommandPrefix, metrics.Command, metricPath)
}

func trackCommandResult(ctx *cli.Context, result string, err error) {
	metrics, ok := MetricsFromContext(ctx.Context)
	if !ok {
		return
	}

	// Copy the flags map to avoid modifying the original
	props := make(map[string]interface{}, len(metrics.Flags))
	for k, v := range metrics.Flags {
		props[k] = v
	}
	props["duration_ms"] = time.Since(metrics.StartTime).Milliseconds()

	if err != nil {
		props["error"] = err.Error()
	}

	_ = Track(ctx.Context, FormatEventName(metrics.Command, result), props)
}

// WithTelemetry wraps a command action with invoked/success/fail events.
func WithTelemetry(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		command := ctx.Command.Name

		client := newTelemetryClient(ctx)
		defer client.Close()
		ctx.Context = telemetry.WithContext(ctx.Context, client)

		flags := collectFlagValues(ctx)
		ctx.Context = WithCommandMetrics(ctx.Context, CommandMetrics{
			StartTime: time.Now(),
			Command:   command,
			Flags:     flags,
		})

		_ = Track(ctx.Context, FormatEventName(command, "invoked"), flags)

		err := action(ctx)

		if err != nil {
			trackCommandResult(ctx, "fail", err)
		} else {
			trackCommandResult(ctx, "success", nil)
		}

		return err
	}
}

// ApplyMiddleware applies a list of middleware functions to commands
func ApplyMiddleware(commands []*cli.Command, middlewares ...func(cli.ActionFunc) cli.ActionFunc) {
	for _, cmd := range commands {
		if cmd.Action != nil {
			wrappedAction := cmd.Action
			for _, middleware := range middlewares {
				wrappedAction = middleware(wrappedAction)
			}
			cmd.Action = wrappedAction
		}

		// Recursively apply to subcommands
		if len(cmd.Subcommands) > 0 {
			ApplyMiddleware(cmd.Subcommands, middlewares...)
		}
	}
}

// LoadEnvFile loads environment variables from .env if it exists.
// Variables already set in the environment win over the file.
func LoadEnvFile(_ *cli.Context) error {
	if _, err := os.Stat(EnvFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(EnvFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}
	return nil
}
