package cmd

import (
	"bytes"
	"fmt"
	"io"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/sensorfs"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	listValues bool
	listFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the file tree that mounting would expose",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return err
		}

		layer, err := openLayer(config)
		if err != nil {
			return err
		}
		defer layer.Close()

		filesystem := sensorfs.New(layer, sensorfs.Options{})
		tree, err := filesystem.Tree(listValues)
		if err != nil {
			return err
		}

		if err := writeTree(cmd.OutOrStdout(), tree, listFormat); err != nil {
			return err
		}

		common.Logger.Debugw("Listed devices", "devices", len(tree))
		return nil
	},
}

// writeTree prints the tree in the named format
func writeTree(w io.Writer, tree []sensorfs.TreeDevice, format string) error {
	var out []byte
	switch format {
	case "yaml":
		data, err := yaml.Marshal(tree)
		if err != nil {
			return err
		}
		out = data
	case "json":
		data, err := PrettyPrint(tree)
		if err != nil {
			return err
		}
		out = []byte(data + "\n")
	case "tree":
		out = renderTree(tree)
	default:
		return fmt.Errorf("unknown format %q, expected tree, yaml or json", format)
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

func renderTree(tree []sensorfs.TreeDevice) []byte {
	var b bytes.Buffer
	b.WriteString("/\n")
	for _, device := range tree {
		fmt.Fprintf(&b, "  %s/\n", device.Device)
		for _, file := range device.Files {
			if file.Value != "" {
				fmt.Fprintf(&b, "    %-22s %s\n", file.Name, file.Value)
			} else {
				fmt.Fprintf(&b, "    %s\n", file.Name)
			}
		}
	}
	return b.Bytes()
}

func ListInit() {
	addHardwareFlags(listCmd.Flags())
	listCmd.Flags().BoolVar(&listValues, "values", false, "read every sensor and print its value")
	listCmd.Flags().StringVar(&listFormat, "format", "tree", "output format (tree, yaml, json)")

	rootCmd.AddCommand(listCmd)
}
