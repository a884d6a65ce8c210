package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/config"
	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the saved session",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the saved session and preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		ui.Success("Session cleared")
		return nil
	},
}

var sessionAutoStartCmd = &cobra.Command{
	Use:       "autostart <on|off>",
	Short:     "Start the server as soon as the dashboard opens",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled := args[0] == "on"
		if err := current.session.SetAutoStart(enabled); err != nil {
			return fmt.Errorf("failed to save preference: %w", err)
		}
		ui.Success("Auto start " + args[0])
		return nil
	},
}

var sessionBellCmd = &cobra.Command{
	Use:       "bell <on|off>",
	Short:     "Ring the terminal bell when the server comes up or fails",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.SetBell(args[0] == "on"); err != nil {
			return fmt.Errorf("failed to save preference: %w", err)
		}
		ui.Success("Bell " + args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionAutoStartCmd)
	sessionCmd.AddCommand(sessionBellCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	rec := current.session.Load()

	ui.Info(current.session.LastSessionInfo())
	fmt.Printf("   • Launches:       %d\n", rec.LaunchCount)
	if !rec.LastSession.IsZero() {
		fmt.Printf("   • Last started:   %s\n", rec.LastSession.Format(time.RFC1123))
	}
	if rec.LastNetworkAddr != "" {
		fmt.Printf("   • Network IP:     %s\n", rec.LastNetworkAddr)
	}
	if rec.LastToolchainPath != "" {
		fmt.Printf("   • Toolchain:      %s\n", rec.LastToolchainPath)
	}
	fmt.Printf("   • Auto start:     %t\n", rec.AutoStart)
	fmt.Printf("   • Bell:           %t\n", rec.Bell)
	fmt.Printf("   • Stored in:      %s\n", config.SessionPath())
	return nil
}
