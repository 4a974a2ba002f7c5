package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"exoplanet-classifier-be/pkg/dataset"
	"exoplanet-classifier-be/pkg/exo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "merge [type:]file...",
		Short: "Convert mission archive exports and merge them into one dataset CSV",
		Long: `Convert NASA Exoplanet Archive exports (koi, toi, k2) onto the dataset header
and merge them. Each argument is type:path, or a bare path whose file name matches
a known mission. Rows with an id seen earlier are dropped.

Examples:
  exoctl merge -o data/dataset.csv data/koi_data.csv toi:exports/toi.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			missions, err := dataset.Missions()
			if err != nil {
				return err
			}

			var sets [][]exo.Row
			for _, arg := range args {
				mission, path, err := resolveMission(missions, arg)
				if err != nil {
					return err
				}
				rows, err := convertFile(mission, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				color.Cyan("%-4s %s: %d rows", mission.Type, path, len(rows))
				sets = append(sets, rows)
			}

			merged, duplicates := dataset.Merge(sets...)
			if err := dataset.SaveFile(out, merged); err != nil {
				return err
			}
			if duplicates > 0 {
				color.Yellow("dropped %d duplicate ids", duplicates)
			}
			color.Green("wrote %d rows to %s", len(merged), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "data/dataset.csv", "output CSV path")
	return cmd
}

func resolveMission(missions []dataset.Mission, arg string) (dataset.Mission, string, error) {
	if typ, path, ok := strings.Cut(arg, ":"); ok {
		m, found := dataset.MissionByType(missions, typ)
		if !found {
			return dataset.Mission{}, "", fmt.Errorf("unknown mission type %q", typ)
		}
		return m, path, nil
	}
	base := filepath.Base(arg)
	for _, m := range missions {
		if m.File == base {
			return m, arg, nil
		}
	}
	return dataset.Mission{}, "", fmt.Errorf("cannot infer mission for %s, use type:path", arg)
}

func convertFile(m dataset.Mission, path string) ([]exo.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.Convert(f)
}
