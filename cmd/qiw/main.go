// Command qiw runs the quality-integrity watchdog detectors from CI.
//
//	qiw build
//	qiw lint --command "npx eslint . --format=json"
//	qiw deployment --health-url https://parts.example.com/health
//
// Exit status is 1 when a recorded incident blocks merge or deployment for
// its channel and 0 otherwise, including when a detector itself fails.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/partpulse/partpulse/internal/qiw"
	"github.com/partpulse/partpulse/pkg/logger"
)

type rootFlags struct {
	config string
	events string
	dir    string
	level  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit status.
func execute(ctx context.Context, args []string) int {
	var (
		flags rootFlags
		code  int
	)

	root := &cobra.Command{
		Use:           "qiw",
		Short:         "Quality-integrity watchdog detectors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.config, "config", "qiw-config.json", "watchdog config (.json or .yaml)")
	root.PersistentFlags().StringVar(&flags.events, "events", "governance/qiw/qiw-events.json", "incident log file")
	root.PersistentFlags().StringVar(&flags.dir, "dir", ".", "repository root the detectors inspect")
	root.PersistentFlags().StringVar(&flags.level, "log-level", "info", "log level")

	runWith := func(d qiw.Detector) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			c, err := runDetector(cmd.Context(), flags, d)
			code = c
			return err
		}
	}

	var buildCmdline, lintCmdline, healthURL, metricsFile string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the build and report failures, dependency conflicts and slow builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(qiw.BuildDetector{Command: buildCmdline})(cmd, args)
		},
	}
	buildCmd.Flags().StringVar(&buildCmdline, "command", qiw.DefaultBuildCommand, "build command")

	lintCmd := &cobra.Command{
		Use:   "lint",
		Short: "Report lint errors and lint bypass directives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(qiw.LintDetector{Command: lintCmdline})(cmd, args)
		},
	}
	lintCmd.Flags().StringVar(&lintCmdline, "command", qiw.DefaultLintCommand, "lint command producing ESLint JSON")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Report pass-rate drops, coverage gaps, skipped tests and test dodging",
		RunE:  runWith(qiw.TestDetector{}),
	}

	deployCmd := &cobra.Command{
		Use:   "deployment",
		Short: "Validate deployment config and probe the health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(qiw.DeploymentDetector{HealthURL: healthURL})(cmd, args)
		},
	}
	deployCmd.Flags().StringVar(&healthURL, "health-url", "", "URL probed after deployment")

	runtimeCmd := &cobra.Command{
		Use:   "runtime",
		Short: "Evaluate exported runtime metrics (never blocks)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWith(qiw.RuntimeDetector{MetricsFile: metricsFile})(cmd, args)
		},
	}
	runtimeCmd.Flags().StringVar(&metricsFile, "metrics-file", qiw.DefaultRuntimeMetricsFile, "runtime metrics snapshot")

	root.AddCommand(buildCmd, lintCmd, testCmd, deployCmd, runtimeCmd)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "qiw:", err)
		return 2
	}
	return code
}

func runDetector(ctx context.Context, flags rootFlags, d qiw.Detector) (int, error) {
	log := logger.New(logger.Options{Level: flags.level, Pretty: true, Output: os.Stderr, Service: "qiw"})

	cfg, err := qiw.LoadConfig(flags.config)
	if err != nil {
		log.Error().Err(err).Msg("watchdog config unavailable, skipping detection")
		return 0, nil
	}
	env := qiw.NewEnv(cfg, flags.dir, log)
	out := qiw.Run(ctx, d, env, qiw.NewStore(flags.events))

	if len(out.Recorded) > 0 {
		log.Info().Strs("incident_ids", out.Recorded).Msg("incidents recorded")
	}
	return out.ExitCode(), nil
}
