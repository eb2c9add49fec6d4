package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wfunc/turnserver/broadcast"
	"github.com/wfunc/turnserver/config"
	"github.com/wfunc/turnserver/logger"
	"github.com/wfunc/turnserver/monitor"
	"github.com/wfunc/turnserver/room"
	"github.com/wfunc/turnserver/session"
)

func newCmd() *cobra.Command {
	v := config.New()
	var configDir string

	cmd := &cobra.Command{
		Use:     "turnserver",
		Short:   "Hotseat turn rotation for a table of players.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(v, configDir)
			if err != nil {
				return err
			}

			if err := logger.Init(cfg.Log.EffectiveLevel(), cfg.Log.Development); err != nil {
				return err
			}
			defer logger.Sync()

			mon := monitor.NewMonitor(cfg.Metrics.Namespace)
			if cfg.Metrics.Address != "" {
				mon.StartServer(cfg.Metrics.Address)
				defer mon.Stop()
			}

			rooms := room.NewRoomManager(mon)
			sessions := session.NewManager()
			b := broadcast.NewRoomBroadcaster(rooms, sessions)

			table := rooms.CreateRoom(cfg.Room.Name, room.Options{
				MinPlayers:   cfg.Room.MinPlayers,
				MaxPlayers:   cfg.Room.MaxPlayers,
				TickInterval: cfg.Room.TickInterval,
				TurnTimeout:  cfg.Room.TurnTimeout,
			}, b)
			defer rooms.RemoveRoom(table.ID)
			logger.Log.Infof("Room %s (%s) ready, %d-%d players", table.Name, table.ID, table.MinPlayers, table.MaxPlayers)

			c := newConsole(table, sessions, cmd.OutOrStdout())
			return c.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&configDir, "config", "c", ".", "directory holding config.yaml")
	fs.String("log-level", "info", "log level (env: TURNSERVER_LOG_LEVEL)")
	fs.BoolP("verbose", "v", false, "log at debug level, overriding --log-level (env: TURNSERVER_LOG_VERBOSE)")
	fs.Int("min-players", 1, "players needed to start (env: TURNSERVER_ROOM_MIN_PLAYERS)")
	fs.Int("max-players", 8, "seats at the table (env: TURNSERVER_ROOM_MAX_PLAYERS)")
	fs.Duration("turn-timeout", 0, "pass the turn on after this long, 0 to disable (env: TURNSERVER_ROOM_TURN_TIMEOUT)")
	fs.String("metrics-address", "", "serve prometheus metrics on this address (env: TURNSERVER_METRICS_ADDRESS)")

	for key, flag := range map[string]string{
		"log.level":         "log-level",
		"log.verbose":       "verbose",
		"room.min_players":  "min-players",
		"room.max_players":  "max-players",
		"room.turn_timeout": "turn-timeout",
		"metrics.address":   "metrics-address",
	} {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("turnserver v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
