package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"supertag/internal/mountregistry"
)

// fstabCmd lists currently mounted collections, the fstab-style view
// mountregistry exists to serve.
var fstabCmd = &cobra.Command{
	Use:   "fstab",
	Short: "List currently mounted collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := mountregistry.Open(filepath.Join(os.TempDir(), "supertag-mounts.toml"))
		entries, err := registry.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no active mounts")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLLECTION\tMOUNTPOINT\tPID\tMOUNTED AT")
		for _, e := range entries {
			mountedAt := time.Unix(int64(e.MountedAt), 0).Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Collection, e.Mountpoint, e.PID, mountedAt)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fstabCmd)
}
