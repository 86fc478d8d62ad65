/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"freyjatree/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server over the tree at HEAD",
	Long: `Start the REST API server, attached to the tree currently
pointed to by HEAD. Mutating requests change the in-memory tree only;
POST /api/v1/commit writes it to the blob store and returns the new root
id. The server does not rewrite HEAD.

Example:
  freyjatree serve --api-key=mysecretkey --port=8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		apiKey, _ := cmd.Flags().GetString("api-key")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		fanout, _ := cmd.Flags().GetInt("fanout")

		if apiKey == "" {
			return fmt.Errorf("--api-key is required")
		}
		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}

		tr, store, err := openTree(dataDir, fanout)
		if err != nil {
			return err
		}

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(tr, store, api.ServerConfig{
			Port:    port,
			APIKey:  apiKey,
			DataDir: dataDir,
			Fanout:  fanout,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("api-key", "", "API key for authentication (required)")
	if err := serveCmd.MarkFlagRequired("api-key"); err != nil {
		panic(err)
	}
}
