package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func VersionCmd(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version of medallion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "the output type, possible values are: plain, json",
			},
		},
		Action: func(c *cli.Context) error {
			info := VersionInfo{Version: c.App.Version, Commit: commit, GoVersion: runtime.Version()}

			if c.String("output") == "json" {
				out, err := json.Marshal(info)
				if err != nil {
					return errors.Wrap(err, "failed to marshal the output")
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("Current: %s (%s)\n", info.Version, info.Commit)
			fmt.Printf("Built with %s\n", info.GoVersion)
			return nil
		},
	}
}
