package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tag",
	Short: "A tag-based virtual filesystem",
	Long: `tag mounts a collection directory as a FUSE filesystem where
directories are tags and their intersections, rather than a fixed
hierarchy. Files are never copied in: each entry is a reference to a
real file elsewhere on disk, filed under every tag you've given it.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml (defaults to <collection>/config.toml)")
}
