package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatroulette",
	Short: "ChatRoulette pairs strangers for text, audio and video chat.",
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run matchmaking and signaling server",
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
