package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"bazil.org/fuse"
	"github.com/spf13/cobra"

	"supertag/internal/mountregistry"
)

var unmountCmd = &cobra.Command{
	Use:     "unmount MOUNTPOINT",
	Aliases: []string{"umount"},
	Short:   "Unmount a previously mounted collection",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountpoint := args[0]

		registry := mountregistry.Open(filepath.Join(os.TempDir(), "supertag-mounts.toml"))
		entries, err := registry.List()
		if err != nil {
			return err
		}

		if err := fuse.Unmount(mountpoint); err != nil {
			return fmt.Errorf("unmounting %s: %w", mountpoint, err)
		}

		for _, e := range entries {
			if e.Mountpoint == mountpoint {
				_ = registry.Remove(e.Token)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unmountCmd)
}
