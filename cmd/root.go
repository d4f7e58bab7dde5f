package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/404wolf/gpusensorfs/common"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logFile    string
	logLevel   string
	silent     bool
)

// validateAndSetupLogging replaces the global logger according to the
// persistent logging flags
func validateAndSetupLogging() error {
	if !slices.Contains(common.LogLevels, logLevel) {
		return fmt.Errorf("invalid log level: %s. Valid levels are: %s",
			logLevel, strings.Join(common.LogLevels, ", "))
	}

	logger, err := common.SetupLogger(logFile, logLevel, silent)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	common.Logger = logger
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "gpusensorfs",
	Short: "Expose GPU sensors as a read-only file system",
	Long: "Mount a read-only FUSE file system with one directory per GPU and one file per sensor " +
		"(temperature, clocks, memory, power, utilization, fan speed), read like hwmon files",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateAndSetupLogging()
	},
}

func InitRoot() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml, $HOME/.config/gpusensorfs/config.yaml or /etc/gpusensorfs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "disable stderr logging")

	MountInit()
	ListInit()
	ConfigInit()
}

func Execute() error {
	InitRoot()
	return rootCmd.Execute()
}
