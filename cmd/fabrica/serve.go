package main

import (
	"github.com/TFMV/fabrica/api"
	"github.com/spf13/cobra"
)

// newServeCommand creates the serve command exposing run status over HTTP.
func newServeCommand() *cobra.Command {
	var port string
	var reportPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run status and the last run report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(api.ServerOptions{
				Port:       port,
				ReportPath: reportPath,
			})
			return server.Start()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3000", "Port to listen on")
	cmd.Flags().StringVar(&reportPath, "report", "fabrica_report.json", "Path to the JSON run report")

	return cmd
}
