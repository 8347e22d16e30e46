package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tilnancy/pod-mod/config"
	server2 "github.com/tilnancy/pod-mod/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the podcast moderation server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
