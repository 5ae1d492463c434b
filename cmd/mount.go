package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"bazil.org/fuse"
	"github.com/spf13/cobra"

	"supertag/internal/mountlock"
	"supertag/internal/mountregistry"
	"supertag/pkg/config"
	"supertag/pkg/engine"
	"supertag/pkg/fusefs"
	"supertag/pkg/linkbackend"
	"supertag/pkg/logging"
	"supertag/pkg/store"
)

// mountCmd mounts a collection directory's tag filesystem at a
// mountpoint, the fuse.Mount + fs.Serve shape the teacher's MountFS used,
// generalised with the lock/registry/config-watch bookkeeping a
// long-running mount needs.
var mountCmd = &cobra.Command{
	Use:   "mount COLLECTION MOUNTPOINT",
	Short: "Mount a collection's tag filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, mountpoint := args[0], args[1]
		return runMount(collection, mountpoint)
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}

func runMount(collection, mountpoint string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(collection, "config.toml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.Setup(collection)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	lock, err := mountlock.Acquire(ctx, collection)
	if err != nil {
		return err
	}
	defer lock.Release()

	dbPath := filepath.Join(collection, "db.sqlite3")
	st, err := store.Open(dbPath, log)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer st.Close()

	eng := engine.New(st, cfg, linkbackend.New(), log)

	stopWatch, err := config.Watch(cfgPath, log, eng.UpdateConfig)
	if err == nil {
		defer stopWatch()
	} else {
		log.WithError(err).Warn("config hot-reload unavailable")
	}

	registry := mountregistry.Open(filepath.Join(os.TempDir(), "supertag-mounts.toml"))
	session, err := registry.Add(collection, mountpoint)
	if err != nil {
		log.WithError(err).Warn("couldn't register mount session")
	} else {
		defer registry.Remove(session.Token)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("unmount requested")
		_ = fuse.Unmount(mountpoint)
	}()

	log.WithField("collection", collection).WithField("mountpoint", mountpoint).Info("mounting")
	if err := fusefs.Mount(eng, mountpoint, log); err != nil {
		return err
	}
	return nil
}
