package control

import (
	"fmt"
	"os"
	"strings"

	"crux/internal/config"
	"crux/internal/service"

	"github.com/spf13/cobra"
)

const serviceName = "crux"

// NewServiceCmd manages the user systemd unit.
func NewServiceCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage user systemd service",
	}

	cmd.AddCommand(newServiceInstallCmd(cfgPath))
	cmd.AddCommand(newServiceUninstallCmd())
	cmd.AddCommand(newServiceStatusCmd())
	return cmd
}

func newServiceInstallCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install user systemd unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			envPairs, _ := cmd.Flags().GetStringArray("env")
			env := make(map[string]string)
			for _, p := range envPairs {
				parts := strings.SplitN(p, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("bad env %q, want KEY=VAL", p)
				}
				env[parts[0]] = parts[1]
			}
			params := service.UnitParams{
				Name:   serviceName,
				Binary: exe,
				Config: cfg.Paths.ConfigPath,
				Env:    env,
			}
			path, err := service.WriteUnit(params)
			if err != nil {
				return err
			}
			fmt.Printf("systemd unit written: %s\n", path)
			fmt.Println("Enable: systemctl --user enable --now", serviceName)
			fmt.Println("Stop:   systemctl --user stop", serviceName)
			return nil
		},
	}
	cmd.Flags().StringArray("env", nil, "Env to set in the unit (KEY=VAL)")
	return cmd
}

func newServiceUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove user systemd unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := service.UnitPath(serviceName)
			_ = os.Remove(path)
			fmt.Printf("removed %s (if present); disable with: systemctl --user disable %s\n", path, serviceName)
			return nil
		},
	}
}

func newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unit path and whether it exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ok := service.Status(serviceName)
			fmt.Printf("unit: %s\n", path)
			if ok {
				fmt.Println("status: present (enable with: systemctl --user enable --now", serviceName, ")")
			} else {
				fmt.Println("status: missing (install via: crux service install)")
			}
			return nil
		},
	}
}
