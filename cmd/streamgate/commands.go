package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/streamgate/app"
	"github.com/kbukum/streamgate/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "streamgate",
		Short:         "Chunked video upload and range streaming gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configFile, envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(configFile, envFile)
			if err != nil {
				return err
			}
			if cfg.Version == "" {
				cfg.Version = version.Get().Version
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config.yml")
	cmd.Flags().StringVar(&envFile, "env-file", "", "path to a .env file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			v := version.Get()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), v.Short())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}
