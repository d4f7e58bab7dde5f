package sensorfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	common "github.com/404wolf/gpusensorfs/common"
)

// PrepareMountPoint makes sure the mount point is a directory. Only the
// default mount point is created when it is missing.
func PrepareMountPoint(mountPoint string) error {
	info, err := os.Stat(mountPoint)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("mount point %s is not a directory", mountPoint)
	case errors.Is(err, os.ErrNotExist) && mountPoint == common.DefaultMountPoint:
		if err := os.MkdirAll(mountPoint, 0o755); err != nil {
			return fmt.Errorf("creating default mount point %s: %w", mountPoint, err)
		}
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("mount point %s does not exist", mountPoint)
	default:
		return fmt.Errorf("checking mount point %s: %w", mountPoint, err)
	}
}

// mountOptions mounts read-only and single threaded. With AutoUnmount set,
// fusermount keeps watching the connection and unmounts once the process is
// gone, even when it was killed without a chance to unmount itself.
func mountOptions(config common.SensorFSConfig) *fuse.MountOptions {
	options := []string{"ro"}
	if config.AutoUnmount {
		options = append(options, "auto_unmount")
	}
	return &fuse.MountOptions{
		FsName:         fsName,
		Name:           fsName,
		AllowOther:     config.AllowOther,
		Debug:          config.GoFuseDebug,
		SingleThreaded: true,
		Options:        options,
	}
}

// Mount serves the filesystem read-only at the configured mount point until
// ctx is done, the process receives SIGINT or SIGTERM, or the filesystem is
// unmounted from outside. doneSettingUp is called once the mount is live.
func Mount(ctx context.Context, filesystem *FileSystem, config common.SensorFSConfig, doneSettingUp func()) error {
	if err := PrepareMountPoint(config.MountPoint); err != nil {
		return err
	}

	common.Logger.Infow("Mounting file system", "mountPoint", config.MountPoint)
	server, err := fuse.NewServer(filesystem, config.MountPoint, mountOptions(config))
	if err != nil {
		return fmt.Errorf("mounting FUSE filesystem at %s: %w", config.MountPoint, err)
	}

	go server.Serve()
	if err := server.WaitMount(); err != nil {
		server.Unmount()
		return fmt.Errorf("waiting for mount at %s: %w", config.MountPoint, err)
	}
	if doneSettingUp != nil {
		doneSettingUp()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	served := make(chan struct{})
	go func() {
		server.Wait()
		close(served)
	}()

	select {
	case <-ctx.Done():
		common.Logger.Infow("Received interrupt signal. Unmounting...", "mountPoint", config.MountPoint)
		if err := server.Unmount(); err != nil {
			return fmt.Errorf("unmounting %s: %w", config.MountPoint, err)
		}
		<-served
	case <-served:
		common.Logger.Infow("File system was unmounted", "mountPoint", config.MountPoint)
	}

	filesystem.Destroy()
	return nil
}
