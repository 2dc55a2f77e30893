package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bruin-data/medallion/pkg/flows"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
	"gopkg.in/yaml.v3"
)

var tiers = []string{flows.TagBronze, flows.TagSilver, flows.TagGold}

func List(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list the assets of a project grouped by their layer",
		ArgsUsage: "[path to the project]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "environment",
				Aliases: []string{"e", "env"},
				Usage:   "the configuration overlay under conf/ to use",
				EnvVars: []string{"MEDALLION_ENV"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "the output type, possible values are: plain, json, yaml",
				Value:   "plain",
			},
			&cli.StringFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "only list the assets with the given tag, e.g. 'customer:1001'",
			},
		},
		Action: func(c *cli.Context) error {
			defer RecoverFromPanic()

			_, p, err := loadProject(projectRoot(c), c.String("environment"), makeLogger(*isDebug))
			if err != nil {
				return exitWithError("Failed to load the project", err)
			}

			switch c.String("output") {
			case "json", "yaml":
				out, err := marshalAssets(listAssets(p, c.String("tag")), c.String("output"))
				if err != nil {
					return exitWithError("Failed to render the assets", err)
				}
				fmt.Println(string(out))
			default:
				fmt.Println(assetTree(p, c.String("tag")).String())
			}
			return nil
		},
	}
}

type assetSummary struct {
	Name    string   `json:"name" yaml:"name"`
	Type    string   `json:"type" yaml:"type"`
	Tags    []string `json:"tags" yaml:"tags"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	Outputs []string `json:"outputs" yaml:"outputs"`
	Checks  int      `json:"checks" yaml:"checks"`
}

func orderedAssets(p *pipeline.Pipeline, tag string) []*pipeline.Asset {
	ordered, err := p.TopologicalOrder()
	if err != nil {
		ordered = p.Assets
	}
	if tag != "" {
		ordered = lo.Filter(ordered, func(a *pipeline.Asset, _ int) bool { return a.HasTag(tag) })
	}
	return ordered
}

func listAssets(p *pipeline.Pipeline, tag string) []assetSummary {
	return lo.Map(orderedAssets(p, tag), func(a *pipeline.Asset, _ int) assetSummary {
		checks := len(a.CustomChecks)
		for _, col := range a.Columns {
			checks += len(col.Checks)
		}
		return assetSummary{
			Name:    a.Name,
			Type:    string(a.Type),
			Tags:    a.Tags,
			Inputs:  a.Inputs,
			Outputs: a.Outputs,
			Checks:  checks,
		}
	})
}

func marshalAssets(assets []assetSummary, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(assets)
	}
	return json.MarshalIndent(assets, "", "  ")
}

// assetTree renders the assets of the pipeline under their layer, in execution order.
func assetTree(p *pipeline.Pipeline, tag string) treeprint.Tree {
	ordered := orderedAssets(p, tag)

	tree := treeprint.NewWithRoot(color.New(color.Bold).Sprintf("%s (%d assets)", p.Name, len(ordered)))
	for _, tier := range tiers {
		assets := lo.Filter(ordered, func(a *pipeline.Asset, _ int) bool { return a.HasTag(tier) })
		if len(assets) == 0 {
			continue
		}

		branch := tree.AddBranch(color.New(color.FgCyan).Sprint(tier))
		for _, asset := range assets {
			node := branch.AddMetaBranch(faint(string(asset.Type)), color.New(color.FgYellow).Sprint(asset.Name))
			node.AddNode(fmt.Sprintf("%s %s", faint("in: "), strings.Join(asset.Inputs, ", ")))
			node.AddNode(fmt.Sprintf("%s %s", faint("out:"), strings.Join(asset.Outputs, ", ")))
		}
	}
	return tree
}
