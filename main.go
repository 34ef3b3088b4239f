package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	seedRequests bool
	Version      = "dev"
	versionCmd   = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the sql backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Fill empty tables with the default rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), seedRequests)
		},
	}
	rootCmd = &cobra.Command{
		Use:           "procurement",
		Short:         "Procurement request tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "path to the configuration file")
	seedCmd.Flags().BoolVar(&seedRequests, "requests", false, "also insert the sample requests")
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("procurement failed")
		os.Exit(1)
	}
}
