package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shoptrail",
		Short:         "Track shopping activity and consolidate products across sites",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(productsCmd())
	root.AddCommand(productCmd())
	root.AddCommand(visitsCmd())
	root.AddCommand(shouldScanCmd())
	root.AddCommand(reviewsCmd())
	root.AddCommand(sitesCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [file]",
		Short: "Store page observations from a JSON file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runIngest(cmd.Context(), path)
		},
	}
}

func productsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List canonical products, most recently seen first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProducts(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func productCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product with its history and linked reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduct(cmd.Context(), args[0])
		},
	}
}

func visitsCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
		category   string
	)

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Show recent page visits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisits(cmd.Context(), limit, category, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max visits to show")
	cmd.Flags().StringVar(&category, "category", "", "only visits in this site category")
	return cmd
}

func shouldScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "should-scan <url>",
		Short: "Report whether a URL is outside its rescan cooldown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShouldScan(cmd.Context(), args[0])
		},
	}
}

func reviewsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List stored reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviews(cmd.Context(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "add [file]",
		Short: "Save reviews from a JSON file or stdin and link them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runReviewsAdd(cmd.Context(), path)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "collect",
		Short: "Collect reviews from configured sources and link them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewsCollect(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "link",
		Short: "Re-link every stored review to matching products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewsLink(cmd.Context())
		},
	})
	return cmd
}

func sitesCmd() *cobra.Command {
	var invalidate string

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List cached site categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites(cmd.Context(), invalidate)
		},
	}

	cmd.Flags().StringVar(&invalidate, "invalidate", "", "drop the cached category for this domain")
	return cmd
}

func statsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts and storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored products, visits, reviews and caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return runReset(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
