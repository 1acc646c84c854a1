package cmd

import (
	"github.com/spf13/cobra"

	"github.com/m-ahsan-nazer/cacophony-api/config"
	server2 "github.com/m-ahsan-nazer/cacophony-api/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start recording pipeline server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
