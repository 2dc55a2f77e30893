package cmd

import (
	"bufio"
	"bytes"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/flows"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func RecoverFromPanic() {
	if err := recover(); err != nil {
		log.Println("=======================================")
		log.Println("medallion encountered an unexpected error, please report the issue with the output below.")
		log.Println(err)
		log.Println("=======================================")
		b := bufio.NewScanner(bytes.NewBuffer(debug.Stack()))
		for b.Scan() {
			log.Println(b.Text())
		}
		os.Exit(1)
	}
}

func NewRunID() string {
	runID := time.Now().Format("2006_01_02_15_04_05")
	if os.Getenv("MEDALLION_RUN_ID") != "" {
		runID = os.Getenv("MEDALLION_RUN_ID")
	}
	return runID
}

func makeLogger(isDebug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if isDebug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger.Sugar()
}

func projectRoot(c *cli.Context) string {
	if root := c.Args().Get(0); root != "" {
		return root
	}
	return "."
}

// loadProject reads and validates the configuration of the project and generates its pipeline.
func loadProject(root, environment string, logger *zap.SugaredLogger) (*config.Config, *pipeline.Pipeline, error) {
	cfg, err := config.Load(fs, root, environment)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("loaded the configuration", "root", root, "environment", cfg.Environment, "customers", len(cfg.Customers))

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	p, err := flows.Build(cfg, nil)
	if err != nil {
		return nil, nil, err
	}

	return cfg, p, nil
}

func exitWithError(message string, err error) error {
	errorPrinter.Printf("%s: %v\n", message, err)
	return cli.Exit("", 1)
}
