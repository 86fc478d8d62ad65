/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"freyjatree/pkg/api"
	"freyjatree/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the FreyjaTree server",
	Long: `Bootstrap FreyjaTree by creating configuration and an API key if
they don't exist yet, then start the REST API server over the tree at
HEAD. This is the recommended way to get FreyjaTree running.

The command will:
- Create a configuration file with a secure API key if missing
- Open (or create) the tree at <data-dir>/HEAD
- Start the REST API server

Examples:
  freyjatree up
  freyjatree up --data-dir ./mydata --port 9000
  freyjatree up --config ./custom-config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		port, _ := cmd.Flags().GetInt("port")
		bind, _ := cmd.Flags().GetString("bind")
		configPath, _ := cmd.Flags().GetString("config")
		printKeys, _ := cmd.Flags().GetBool("print-keys")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		var cfg *config.Config
		var err error

		if config.ConfigExists(configPath) {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading existing config: %w", err)
			}
			cmd.Printf("Loaded existing configuration from %s\n", configPath)
		} else {
			cmd.Printf("First run detected. Bootstrapping FreyjaTree...\n")

			cfg, err = config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return fmt.Errorf("bootstrapping config: %w", err)
			}

			cmd.Printf("Configuration created at %s\n", configPath)

			if printKeys {
				cmd.Printf("\nGenerated keys:\n")
				cmd.Printf("Client API Key: %s\n", cfg.Security.ClientAPIKey)
				cmd.Printf("\nStore this key securely! It is also saved in %s\n", configPath)
			}
		}

		// Override config with command line flags if explicitly set.
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = dataDir
		}
		if port != 8080 {
			cfg.Port = port
		}
		if bind != "127.0.0.1" {
			cfg.Bind = bind
		}

		cmd.Printf("Starting FreyjaTree server on %s:%d\n", cfg.Bind, cfg.Port)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}

		fanout := cfg.Tree.Fanout
		if fanout <= 0 {
			fanout = 64
		}

		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		tr, store, err := openTree(cfg.DataDir, fanout)
		if err != nil {
			return err
		}

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(tr, store, api.ServerConfig{
			Port:    cfg.Port,
			APIKey:  cfg.Security.ClientAPIKey,
			DataDir: cfg.DataDir,
			Fanout:  fanout,
		})
	},
}

func init() {
	rootCmd.AddCommand(upCmd)

	upCmd.Flags().StringP("data-dir", "d", "./data", "Data directory for the tree's blob store and HEAD pointer")
	upCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	upCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	upCmd.Flags().String("config", "", "Path to config file (default: OS-specific location)")
	upCmd.Flags().Bool("print-keys", false, "Print the generated API key to console")
}
