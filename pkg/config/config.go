// Package config decodes and validates a collection's config.toml.
//
// The recognized options and their effects mirror the source's
// DEFAULT_CONFIG_TOML: a [symbols] table of single-rune sigils used by the
// path interpreter and naming service, and a [mount] table of ownership and
// base-directory overrides.
package config

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Symbols holds the sigils the path interpreter (pkg/pathexpr) and naming
// service (pkg/naming) use to tell tag segments, tag groups, the filedir
// terminal, and fully-qualified file leaves apart.
type Symbols struct {
	InodeChar     string `toml:"inode_char" validate:"required,len=1"`
	DeviceChar    string `toml:"device_char" validate:"required"`
	SyncChar      string `toml:"sync_char" validate:"required"`
	FiledirStr    string `toml:"filedir_str" validate:"required"`
	FiledirCLIStr string `toml:"filedir_cli_str" validate:"required"`
	TagGroupStr   string `toml:"tag_group_str" validate:"required"`
	// UnlinkName is the single-segment destination name a rename onto a
	// root-level tag is compared against: `mv /tagname <UnlinkName>`
	// deletes the tag outright instead of merging it.
	UnlinkName string `toml:"unlink_name" validate:"required"`
}

// Mount holds where and as whom a collection is mounted.
type Mount struct {
	BaseDir     string `toml:"base_dir"`
	UID         uint32 `toml:"uid"`
	GID         uint32 `toml:"gid"`
	Permissions uint32 `toml:"permissions"`
}

// Config is the decoded form of a collection's config.toml.
type Config struct {
	Symbols Symbols `toml:"symbols" validate:"required"`
	Mount   Mount   `toml:"mount"`
}

const (
	defaultInodeChar     = "-"
	defaultDeviceChar    = "﹫"
	defaultSyncChar      = ""
	defaultFiledirStr    = "⋂"
	defaultFiledirCLIStr = "_"
	defaultTagGroupStr   = "+"
	defaultUnlinkName    = "delete"
)

// Default returns the configuration the source ships as DEFAULT_CONFIG_TOML,
// with mount uid/gid taken from the invoking process and mount permissions
// fixed at 0755 (the umask is not consulted).
func Default() Config {
	cfg := Config{
		Symbols: Symbols{
			InodeChar:     defaultInodeChar,
			DeviceChar:    defaultDeviceChar,
			SyncChar:      defaultSyncChar,
			FiledirStr:    defaultFiledirStr,
			FiledirCLIStr: defaultFiledirCLIStr,
			TagGroupStr:   defaultTagGroupStr,
			UnlinkName:    defaultUnlinkName,
		},
		Mount: Mount{
			BaseDir:     defaultBaseDir(),
			UID:         uint32(os.Getuid()),
			GID:         uint32(os.Getgid()),
			Permissions: 0755,
		},
	}
	return cfg
}

func defaultBaseDir() string {
	if runtime.GOOS == "darwin" {
		return "/Volumes"
	}
	return "/mnt"
}

// Load decodes path on top of Default(), so a partial or absent config.toml
// still yields a working collection, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("statting %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	if cfg.Symbols.TagGroupStr == "" || cfg.Symbols.TagGroupStr == "/" {
		return Config{}, fmt.Errorf("symbols.tag_group_str must be non-empty and not the path separator")
	}
	if cfg.Symbols.FiledirStr == cfg.Symbols.FiledirCLIStr {
		return Config{}, fmt.Errorf("symbols.filedir_str and symbols.filedir_cli_str must differ")
	}

	return cfg, nil
}

var validate = validator.New()

// Watch reloads path on every write event and calls onChange with the
// newly validated Config, letting a mounted collection pick up edits to
// its config.toml (ownership, symbol remapping) without a remount. A
// config.toml that fails to parse or validate after an edit is logged
// and skipped, leaving the previous configuration in effect.
func Watch(path string, log *logrus.Logger, onChange func(Config)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.WithError(err).WithField("path", path).Warn("ignoring invalid config reload")
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			}
		}
	}()

	return watcher.Close, nil
}

// CurrentUserIDs resolves the uid/gid of the invoking user through
// os/user. Default does not call it; it uses os.Getuid/os.Getgid.
func CurrentUserIDs() (uid, gid uint32, err error) {
	u, err := user.Current()
	if err != nil {
		return 0, 0, err
	}
	uid64, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	gid64, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(uid64), uint32(gid64), nil
}
