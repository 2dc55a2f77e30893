package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/connection"
	"github.com/bruin-data/medallion/pkg/executor"
	"github.com/bruin-data/medallion/pkg/logger"
	"github.com/bruin-data/medallion/pkg/metrics"
	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/bruin-data/medallion/pkg/state"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

type RunConfig struct {
	Environment string
	Workers     int
	Tags        []string
	ExcludeTags []string
	NoLogFile   bool
	NoChecks    bool
	Timeout     time.Duration
}

// Parameters renders the run configuration for the persisted run state.
func (r RunConfig) Parameters() map[string]string {
	return map[string]string{
		"environment": r.Environment,
		"workers":     strconv.Itoa(r.Workers),
		"tag":         strings.Join(r.Tags, ","),
		"exclude-tag": strings.Join(r.ExcludeTags, ","),
		"no-checks":   strconv.FormatBool(r.NoChecks),
		"timeout":     r.Timeout.String(),
	}
}

func Run(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run the bronze, silver and gold pipeline of a project",
		ArgsUsage: "[path to the project]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the configuration overlay under conf/ to use",
				EnvVars: []string{"MEDALLION_ENV"},
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "number of workers to run the tasks in parallel, defaults to project.workers",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "pick the assets with the given tag, e.g. 'silver' or 'customer:1001'",
			},
			&cli.StringSliceFlag{
				Name:    "exclude-tag",
				Aliases: []string{"x"},
				Usage:   "exclude the assets with the given tag",
			},
			&cli.BoolFlag{
				Name:  "no-log-file",
				Usage: "do not create a log file for this run",
			},
			&cli.BoolFlag{
				Name:  "no-checks",
				Usage: "run the assets without their quality checks",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "timeout for the entire pipeline run in seconds",
				Value: 604800,
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			logger := makeLogger(*isDebug)
			root := projectRoot(c)

			cfg, p, err := loadProject(root, c.String("environment"), logger)
			if err != nil {
				return exitWithError("Failed to load the project", err)
			}

			runConfig := RunConfig{
				Environment: cfg.Environment,
				Workers:     cfg.Project.Workers,
				Tags:        c.StringSlice("tag"),
				ExcludeTags: c.StringSlice("exclude-tag"),
				NoLogFile:   c.Bool("no-log-file"),
				NoChecks:    c.Bool("no-checks"),
				Timeout:     time.Duration(c.Int("timeout")) * time.Second,
			}
			if c.IsSet("workers") {
				runConfig.Workers = c.Int("workers")
			}
			if runConfig.Workers < 1 {
				errorPrinter.Printf("The number of workers must be at least 1, got %d\n", runConfig.Workers)
				return cli.Exit("", 1)
			}

			conns := connection.NewManagerFromConfig(cfg)
			defer func() {
				if err := conns.Close(); err != nil {
					logger.Warnw("failed to close the connections", "error", err)
				}
			}()

			dataCatalog, err := catalog.New(cfg, fs, conns)
			if err != nil {
				return exitWithError("Failed to set up the data catalog", err)
			}

			if err := p.Validate(dataCatalog.Declared); err != nil {
				return exitWithError("The pipeline is invalid", err)
			}

			runID := NewRunID()
			if !runConfig.NoLogFile {
				logPath, err := filepath.Abs(filepath.Join(root, LogsFolder, fmt.Sprintf("%s__%s.log", runID, p.Name)))
				if err != nil {
					return exitWithError("Failed to create log file", err)
				}

				flush, err := logOutput(logPath)
				if err != nil {
					return exitWithError("Failed to create log file", err)
				}
				defer flush()
				color.Output = os.Stdout
			}

			infoPrinter.Printf("Analyzed the pipeline '%s' with %d assets.\n", p.Name, len(p.Assets))

			runState := state.NewState(runID, p.Name, runConfig.Parameters())
			s := scheduler.NewScheduler(logger, p, runState)
			pending := s.SelectByTags(runConfig.Tags, runConfig.ExcludeTags)
			if runConfig.NoChecks {
				s.MarkPendingInstancesByType(scheduler.TaskInstanceTypeColumnCheck, scheduler.Skipped)
				s.MarkPendingInstancesByType(scheduler.TaskInstanceTypeCustomCheck, scheduler.Skipped)
				pending = s.InstanceCountByStatus(scheduler.Pending)
			}
			if pending == 0 {
				warningPrinter.Println("No tasks to run.")
				return nil
			}

			registry := metrics.NewRegistry()
			operators := executor.DefaultExecutors(
				executor.NewTransformOperator(dataCatalog, registry),
				executor.NewColumnCheckOperator(dataCatalog),
				executor.NewCustomCheckOperator(dataCatalog),
			)
			ex := executor.NewConcurrent(logger, operators, runConfig.Workers, registry)

			timeoutCtx, timeoutCancel := context.WithTimeout(c.Context, runConfig.Timeout)
			defer timeoutCancel()
			exeCtx, cancel := signal.NotifyContext(timeoutCtx, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			infoPrinter.Printf("\nStarting the pipeline execution with %d workers...\n\n", runConfig.Workers)
			ex.Start(exeCtx, s.WorkQueue, s.Results)

			start := time.Now()
			results := s.Run(exeCtx)
			duration := time.Since(start)

			saveRunArtifacts(root, p.Name, runState, registry, logger)

			failed, warnings := splitFailures(results)

			printExecutionSummary(results, s, duration, len(failed) > 0)
			if len(warnings) > 0 {
				printWarningsInResults(warnings)
			}
			if len(failed) > 0 {
				printErrorsInResults(failed)
				return cli.Exit("", 1)
			}
			if exeCtx.Err() != nil {
				errorPrinter.Printf("The run was interrupted: %v\n", exeCtx.Err())
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

func saveRunArtifacts(root, pipelineName string, runState *state.State, registry *metrics.Registry, logger logger.Logger) {
	if err := runState.Save(fs, filepath.Join(root, RunsFolder, pipelineName)); err != nil {
		logger.Errorw("failed to save pipeline state", "error", err)
	}

	if err := registry.WriteTextfile(fs, filepath.Join(root, MetricsFolder, pipelineName+".prom")); err != nil {
		logger.Errorw("failed to write the run metrics", "error", err)
	}
}
