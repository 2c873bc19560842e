// Command plant-buddy reads soil moisture and air conditions, drives the
// water pump from remote MQTT commands, and alerts when the plant is dry.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/plant-buddy/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "plant-buddy",
	Short: "Soil moisture monitor and remote-controlled watering pump",
	Long: `plant-buddy samples a soil moisture probe and an air temperature/humidity
sensor every tick, publishes the readings over MQTT, raises a low-moisture
alert at most once per alert interval, and switches the pump on MQTT command.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return run(cfg, logger)
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read every sensor once, print the values and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return readOnce(cfg, logger, cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides the config file")

	for _, c := range []*cobra.Command{runCmd, readCmd, configCmd} {
		c.Flags().String("broker", "", "MQTT broker address")
		c.Flags().String("http", "", `HTTP status address ("off" to disable)`)
		c.Flags().Duration("tick", 0, "Sampling interval")
		c.Flags().Duration("heartbeat", 0, "Heartbeat interval (negative to disable)")
		c.Flags().Int("pin-pump", -1, "BCM pin number for the pump relay")
		c.Flags().String("soil-driver", "", "Soil sensor driver (ads1115, serial, modbus)")
		rootCmd.AddCommand(c)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger.Debug().Str("config_file", cfgFile).Msg("Configuration loaded")
	return cfg, logger, nil
}

// applyFlags overrides config values with the flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("broker") {
		cfg.MQTT.Broker, err = flags.GetString("broker")
	}
	if err == nil && flags.Changed("http") {
		cfg.HTTPAddr, err = flags.GetString("http")
		if cfg.HTTPAddr == "off" {
			cfg.HTTPAddr = ""
		}
	}
	if err == nil && flags.Changed("tick") {
		cfg.Tick, err = flags.GetDuration("tick")
	}
	if err == nil && flags.Changed("heartbeat") {
		var hb time.Duration
		hb, err = flags.GetDuration("heartbeat")
		if hb < 0 {
			hb = 0
		}
		cfg.Heartbeat = hb
	}
	if err == nil && flags.Changed("pin-pump") {
		cfg.Pump.Pin, err = flags.GetInt("pin-pump")
	}
	if err == nil && flags.Changed("soil-driver") {
		cfg.Soil.Driver, err = flags.GetString("soil-driver")
	}
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}

// newLogger writes human-readable output to a terminal and JSON otherwise.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
