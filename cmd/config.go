package cmd

import (
	"fmt"
	"os"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/spf13/cobra"
	yamlcomment "github.com/zijiren233/yaml-comment"
)

var forceConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented default configuration",
	Long:  "Write a commented default configuration to path, or to stdout when no path is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := DefaultConfigText()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			_, err := os.Stdout.Write(contents)
			return err
		}

		path := args[0]
		if _, err := os.Stat(path); err == nil && !forceConfig {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
		if err := os.WriteFile(path, contents, 0o644); err != nil {
			return fmt.Errorf("writing config to %s: %w", path, err)
		}
		common.Logger.Infof("Wrote default configuration to %s", path)
		return nil
	},
}

// DefaultConfigText renders the default configuration as yaml with a comment
// explaining each setting
func DefaultConfigText() ([]byte, error) {
	return yamlcomment.Marshal(common.DefaultConfig())
}

func ConfigInit() {
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
