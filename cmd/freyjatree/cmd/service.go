/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"freyjatree/pkg/config"
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage FreyjaTree as a systemd service",
	Long: `Manage FreyjaTree as a systemd service. This command provides
native integration with systemd for production deployments.

The service will be installed with proper security settings and
automatic restart on failure.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install FreyjaTree as a systemd service",
	Long: `Install FreyjaTree as a systemd service with proper configuration.

This will:
- Create or use existing configuration
- Generate systemd unit file
- Enable and optionally start the service

Examples:
  freyjatree service install
  freyjatree service install --data-dir /var/lib/freyjatree --user freyjatree`,
	Run: func(cmd *cobra.Command, args []string) {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath, _ := cmd.Flags().GetString("config")
		user, _ := cmd.Flags().GetString("user")
		port, _ := cmd.Flags().GetInt("port")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if os.Geteuid() != 0 {
			cmd.Printf("Error: service install requires root privileges\n")
			cmd.Printf("Run with: sudo freyjatree service install\n")
			os.Exit(1)
		}

		cmd.Printf("Installing FreyjaTree systemd service...\n")

		var cfg *config.Config
		var err error

		if config.ConfigExists(configPath) {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				cmd.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
			cmd.Printf("Loaded existing configuration\n")
		} else {
			cfg, err = config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				cmd.Printf("Error bootstrapping config: %v\n", err)
				os.Exit(1)
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if port != 8080 {
			cfg.Port = port
		}

		if err := config.SaveConfig(cfg, configPath); err != nil {
			cmd.Printf("Error saving config: %v\n", err)
			os.Exit(1)
		}

		if err := createSystemdUnit(cfg, configPath, user); err != nil {
			cmd.Printf("Error creating systemd unit: %v\n", err)
			os.Exit(1)
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			cmd.Printf("Error reloading systemd: %v\n", err)
			os.Exit(1)
		}

		if err := runSystemctlCommand("enable", "freyjatree.service"); err != nil {
			cmd.Printf("Error enabling service: %v\n", err)
			os.Exit(1)
		}

		cmd.Printf("Service enabled successfully\n")

		if startNow {
			if err := runSystemctlCommand("start", "freyjatree.service"); err != nil {
				cmd.Printf("Error starting service: %v\n", err)
				os.Exit(1)
			}
			cmd.Printf("Service started successfully\n")
		}

		cmd.Printf("\nFreyjaTree service installed!\n")
		cmd.Printf("Service: freyjatree.service\n")
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Data: %s\n", cfg.DataDir)
		cmd.Printf("Port: %d\n", cfg.Port)

		if !startNow {
			cmd.Printf("\nTo start the service: sudo systemctl start freyjatree.service\n")
		}
		cmd.Printf("To check status: sudo systemctl status freyjatree.service\n")
		cmd.Printf("To view logs: sudo journalctl -u freyjatree.service -f\n")
	},
}

// startCmd represents the service start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FreyjaTree service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSystemctlCommand("start", "freyjatree.service"); err != nil {
			cmd.Printf("Error starting service: %v\n", err)
			os.Exit(1)
		}
		cmd.Printf("FreyjaTree service started\n")
	},
}

// stopCmd represents the service stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the FreyjaTree service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSystemctlCommand("stop", "freyjatree.service"); err != nil {
			cmd.Printf("Error stopping service: %v\n", err)
			os.Exit(1)
		}
		cmd.Printf("FreyjaTree service stopped\n")
	},
}

// restartCmd represents the service restart command
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the FreyjaTree service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSystemctlCommand("restart", "freyjatree.service"); err != nil {
			cmd.Printf("Error restarting service: %v\n", err)
			os.Exit(1)
		}
		cmd.Printf("FreyjaTree service restarted\n")
	},
}

// statusCmd represents the service status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show FreyjaTree service status",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSystemctlCommand("status", "freyjatree.service"); err != nil {
			cmd.Printf("Error getting service status: %v\n", err)
			os.Exit(1)
		}
	},
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show FreyjaTree service logs",
	Long: `Show FreyjaTree service logs using journalctl.

Examples:
  freyjatree service logs
  freyjatree service logs -f  # Follow logs`,
	Run: func(cmd *cobra.Command, args []string) {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", "freyjatree.service"}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}

		if err := runCommand("journalctl", journalArgs...); err != nil {
			cmd.Printf("Error getting service logs: %v\n", err)
			os.Exit(1)
		}
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the FreyjaTree service",
	Run: func(cmd *cobra.Command, args []string) {
		if os.Geteuid() != 0 {
			cmd.Printf("Error: service uninstall requires root privileges\n")
			cmd.Printf("Run with: sudo freyjatree service uninstall\n")
			os.Exit(1)
		}

		cmd.Printf("Uninstalling FreyjaTree service...\n")

		_ = runSystemctlCommand("stop", "freyjatree.service") // ignore errors if already stopped

		if err := runSystemctlCommand("disable", "freyjatree.service"); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}

		unitPath := "/etc/systemd/system/freyjatree.service"
		if _, err := os.Stat(unitPath); err == nil {
			if err := os.Remove(unitPath); err != nil {
				cmd.Printf("Error removing unit file: %v\n", err)
				os.Exit(1)
			}
		}

		if err := runSystemctlCommand("daemon-reload"); err != nil {
			cmd.Printf("Error reloading systemd: %v\n", err)
			os.Exit(1)
		}

		cmd.Printf("FreyjaTree service uninstalled\n")
		cmd.Printf("Note: configuration and data files were not removed\n")
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(startCmd)
	serviceCmd.AddCommand(stopCmd)
	serviceCmd.AddCommand(restartCmd)
	serviceCmd.AddCommand(statusCmd)
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installServiceCmd.Flags().String("data-dir", "/var/lib/freyjatree", "Data directory for the service")
	installServiceCmd.Flags().String("config", "", "Path to config file")
	installServiceCmd.Flags().String("user", "freyjatree", "User to run the service as")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// createSystemdUnit creates the systemd unit file
func createSystemdUnit(cfg *config.Config, configPath, user string) error {
	unitContent := fmt.Sprintf(`[Unit]
Description=FreyjaTree Server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=/usr/local/bin/freyjatree up --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, configPath, cfg.DataDir, filepath.Dir(configPath))

	unitPath := "/etc/systemd/system/freyjatree.service"
	return os.WriteFile(unitPath, []byte(unitContent), 0600)
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
