package cmd

import (
	"context"
	"errors"
	"os"

	common "github.com/404wolf/gpusensorfs/common"
	"github.com/404wolf/gpusensorfs/sensorfs"
	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount [mountpoint]",
	Short: "Mount the sensor file system",
	Long: "Mount the sensor file system at the given directory, or at the configured mount point. " +
		"The default mount point " + common.DefaultMountPoint + " is created when it is missing.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			config.MountPoint = args[0]
		}

		if config.Backend == common.BackendNVML && os.Geteuid() != 0 {
			return errors.New("this command has to be run with superuser privileges")
		}

		layer, err := openLayer(config)
		if err != nil {
			common.Logger.Errorw("Failed to initialize hardware backend", "backend", config.Backend, "error", err)
			return err
		}
		defer func() {
			if err := layer.Close(); err != nil {
				common.ReportError("Failed to shut down hardware backend", err)
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if config.MetricsAddr != "" {
			go func() {
				if err := sensorfs.ServeMetrics(ctx, config.MetricsAddr); err != nil {
					common.ReportError("Metrics endpoint stopped", err)
				}
			}()
		}

		filesystem := sensorfs.New(layer, sensorfs.Options{
			AttrTimeout:  config.AttrTimeout,
			EntryTimeout: config.EntryTimeout,
			Owner:        sensorfs.Owner{UID: config.UID, GID: config.GID},
		})

		return sensorfs.Mount(ctx, filesystem, *config, func() {
			common.Logger.Infof("Mounted sensor file system at %s, unmount with Ctrl-C or 'umount %s'",
				config.MountPoint, config.MountPoint)
		})
	},
}

func MountInit() {
	flags := mountCmd.Flags()
	addHardwareFlags(flags)
	flags.Bool("allow-other", true, "let other users read the file system")
	flags.Bool("auto-unmount", true, "unmount even when the process is killed (needs fusermount support)")
	flags.Bool("fuse-debug", false, "enable go fuse's debug mode")
	flags.Duration("attr-timeout", common.DefaultConfig().AttrTimeout, "how long the kernel may cache attributes")
	flags.Duration("entry-timeout", common.DefaultConfig().EntryTimeout, "how long the kernel may cache names")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9400)")
	flags.Uint32("uid", common.DefaultConfig().UID, "owner uid reported for every file")
	flags.Uint32("gid", common.DefaultConfig().GID, "owner gid reported for every file")

	rootCmd.AddCommand(mountCmd)
}
