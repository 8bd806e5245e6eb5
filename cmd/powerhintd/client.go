package main

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhintd/internal/api"
	"codeberg.org/mutker/powerhintd/internal/config"
	"codeberg.org/mutker/powerhintd/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	// Negative durations end a boost and must not parse as shorthand flags.
	boostCmd.Flags().SetInterspersed(false)

	supportedCmd.AddCommand(supportedModeCmd, supportedBoostCmd)
	rootCmd.AddCommand(modeCmd, boostCmd, supportedCmd, dumpCmd, rateCmd)
}

var modeCmd = &cobra.Command{
	Use:   "mode <NAME> on|off",
	Short: "Enable or disable a mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		return c.SetMode(cmd.Context(), args[0], enabled)
	},
}

var boostCmd = &cobra.Command{
	Use:   "boost <NAME> <ms>",
	Short: "Fire a boost for a duration in milliseconds (0 holds, negative ends)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ms, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return errors.New().WithData(errors.ErrInvalidArgument, "duration: "+args[1])
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		return c.SetBoost(cmd.Context(), args[0], int32(ms))
	},
}

var supportedCmd = &cobra.Command{
	Use:   "supported",
	Short: "Query whether a mode or boost is supported",
}

var supportedModeCmd = &cobra.Command{
	Use:  "mode <NAME>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		ok, err := c.IsModeSupported(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)

		return nil
	},
}

var supportedBoostCmd = &cobra.Command{
	Use:  "boost <NAME>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		ok, err := c.IsBoostSupported(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)

		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the daemon state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		out, err := c.Dump(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		return nil
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Print the preferred session reporting rate in nanoseconds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		ns, err := c.PreferredRate(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ns)

		return nil
	},
}

func newClient(cmd *cobra.Command) (*api.Client, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	return api.NewClient(cfg.Listen), nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, errors.New().WithData(errors.ErrInvalidArgument, "expected on or off, got "+s)
	}
}
