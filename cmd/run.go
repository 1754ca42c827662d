package cmd

import (
	"log/slog"

	"github.com/encodeous/strand/core"
	"github.com/encodeous/strand/state"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <routing socket> <forwarding socket>",
		Short: "Run strand",
		Long: `This will run the routing daemon. By default both sockets are expected to exist already,
the link layer owns the routing socket and the data plane owns the forwarding socket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return cmd.Usage()
			}
			cfg, err := runConfig(cmd, args)
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if ok, _ := cmd.Flags().GetBool("verbose"); ok {
				level = slog.LevelDebug
			}
			return core.Start(cfg, level)
		},
		GroupID: "daemon",
	}

	c.Flags().StringP("config", "c", "", "YAML config file, flags override its values")
	c.Flags().Bool("listen-routing", false, "Own the routing socket instead of connecting to it")
	c.Flags().Bool("listen-forward", false, "Own the forwarding socket instead of connecting to it")
	c.Flags().Duration("pulse", state.PulseInterval, "Interval between advertisement rounds")
	c.Flags().Duration("expiry", state.RecordRemainTime, "How long a route is kept without being refreshed")
	c.Flags().Duration("wait", state.WaitTimeout, "Longest the main loop sleeps without events")
	c.Flags().String("log-path", "", "Also write logs to this file")
	c.Flags().String("debug-addr", "", "Serve pprof, expvar and the metric dashboard on this address")
	c.Flags().BoolP("verbose", "v", false, "Verbose output")
	c.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route table to the console after each pulse")
	c.Flags().BoolVarP(&state.DBG_log_route_changes, "lroute", "r", false, "Outputs route changes to the console")
	c.Flags().BoolVarP(&state.DBG_log_messages, "lmsg", "m", false, "Outputs every advertisement sent and received")
	return c
}

// runConfig layers the socket arguments and any changed flags over the config file, or the defaults when there is none.
func runConfig(cmd *cobra.Command, args []string) (state.LocalCfg, error) {
	cfg := state.DefaultLocalCfg()
	flags := cmd.Flags()
	if path, _ := flags.GetString("config"); path != "" {
		file, err := state.ReadLocalCfg(path)
		if err != nil {
			return cfg, err
		}
		cfg = *file
	}

	cfg.Routing.Path = args[0]
	cfg.Forward.Path = args[1]
	if ok, _ := flags.GetBool("listen-routing"); ok {
		cfg.Routing.Role = state.RoleListen
	}
	if ok, _ := flags.GetBool("listen-forward"); ok {
		cfg.Forward.Role = state.RoleListen
	}
	if flags.Changed("pulse") {
		cfg.PulseInterval, _ = flags.GetDuration("pulse")
	}
	if flags.Changed("expiry") {
		cfg.RecordRemainTime, _ = flags.GetDuration("expiry")
	}
	if flags.Changed("wait") {
		cfg.WaitTimeout, _ = flags.GetDuration("wait")
	}
	if flags.Changed("log-path") {
		cfg.LogPath, _ = flags.GetString("log-path")
	}
	if flags.Changed("debug-addr") {
		cfg.DebugAddr, _ = flags.GetString("debug-addr")
	}

	err := state.ConfigValidator(&cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
