// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// crawlCommand walks the catalog and collects track ids
func crawlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Collect track ids from every browse category's playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "deep",
				Usage: "Expand every track through its album",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write the track ids under the output directory",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not report progress",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent catalog requests (default from config)",
			},
			&cli.FloatFlag{
				Name:  "rps",
				Usage: "Client-side request pacing, 0 disables (default from config)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory (default from config)",
			},
			&cli.BoolFlag{
				Name:  "store",
				Usage: "Record the run and its track ids in the database",
			},
		},
		Action: r.Crawl,
	}
}

// tableFlags select the feature table a command reads.
func tableFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "table",
			Aliases: []string{"t"},
			Usage:   "Feature table snapshot to read (default: <output_dir>/features.snapshot)",
		},
		&cli.StringFlag{
			Name:  "run",
			Usage: "Read the feature table stored for a crawl run",
		},
	}, extra...)
}

// featuresCommand handles feature tables and clustering
func featuresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "features",
		Aliases: []string{"feat"},
		Usage:   "Audio feature tables and clustering",
		Commands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Fetch audio features for a list of track ids",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "ids",
						Usage: "Newline-delimited track id file",
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Use the track ids stored for a crawl run",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Snapshot path (default: <output_dir>/features.snapshot)",
					},
					&cli.BoolFlag{
						Name:  "store",
						Usage: "Store the table with the crawl run given by --run",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not report progress",
					},
				},
				Action: r.FeaturesFetch,
			},
			{
				Name:  "cluster",
				Usage: "Scale numeric features and assign k-means clusters",
				Flags: tableFlags(
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"clusters"},
						Usage:   "Number of clusters (default from config)",
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed (default from config)",
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Write the labelled table as CSV to this path",
					},
					&cli.StringFlag{
						Name:  "summary",
						Usage: "Write a Markdown cluster summary to this path",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Write the labels back to the snapshot or the stored run",
					},
				),
				Action: r.FeaturesCluster,
			},
			{
				Name:  "similar",
				Usage: "List tracks that share a track's cluster",
				Flags: tableFlags(
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Track id to match",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks, 0 for all",
						Value: 20,
					},
				),
				Action: r.FeaturesSimilar,
			},
		},
	}
}

// runsCommand handles recorded crawl runs
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded crawl runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "deep",
						Usage: "Only runs with deep lookup",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs, 0 for all",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.RunsList,
			},
			{
				Name:  "show",
				Usage: "Show one run",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "tracks",
						Usage: "Print the run's track ids",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.RunsShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run ID",
						Required: true,
					},
				},
				Action: r.RunsDelete,
			},
		},
	}
}
