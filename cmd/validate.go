package cmd

import (
	"time"

	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/connection"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
)

func Validate(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate the configuration and the pipeline of a project without running it",
		ArgsUsage: "[path to the project]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the configuration overlay under conf/ to use",
				EnvVars: []string{"MEDALLION_ENV"},
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			logger := makeLogger(*isDebug)
			cfg, p, err := loadProject(projectRoot(c), c.String("environment"), logger)
			if err != nil {
				return exitWithError("Validation failed", err)
			}

			if err := validatePipeline(cfg, p); err != nil {
				return exitWithError("Validation failed", err)
			}

			successPrinter.Printf("✓ The project '%s' is valid: %d customers, %d assets.\n", p.Name, len(cfg.Customers), len(p.Assets))
			if cfg.Project.Schedule != "" {
				schedule, _ := cron.ParseStandard(cfg.Project.Schedule)
				infoPrinter.Printf("Next scheduled run: %s\n", schedule.Next(time.Now()).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// validatePipeline checks the catalog entries and that every raw input of the pipeline is declared
// in the catalog. Database connections are only opened on first use, so none are opened here.
func validatePipeline(cfg *config.Config, p *pipeline.Pipeline) error {
	conns := connection.NewManagerFromConfig(cfg)
	defer conns.Close() //nolint:errcheck

	dataCatalog, err := catalog.New(cfg, fs, conns)
	if err != nil {
		return err
	}

	if err := p.Validate(dataCatalog.Declared); err != nil {
		return errors.Wrapf(err, "pipeline '%s' is invalid", p.Name)
	}
	return nil
}
