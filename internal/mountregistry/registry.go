// Package mountregistry tracks which collections are currently mounted
// and where, the analogue of /etc/mtab for supertag's own fstab-style
// bookkeeping (see cmd/fstab.go).
package mountregistry

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// Entry is one active mount session.
type Entry struct {
	Token      string  `toml:"token"`
	Collection string  `toml:"collection"`
	Mountpoint string  `toml:"mountpoint"`
	PID        int     `toml:"pid"`
	MountedAt  float64 `toml:"mounted_at"`
}

type document struct {
	Mounts []Entry `toml:"mounts"`
}

// Registry is a TOML-backed list of active mounts at path.
type Registry struct {
	path string
}

// Open returns a Registry backed by path, which need not exist yet.
func Open(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) load() (document, error) {
	var doc document
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", r.path, err)
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing %s: %w", r.path, err)
	}
	return doc, nil
}

func (r *Registry) save(doc document) error {
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", r.path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}

// Add registers a new mount session and returns its Entry, whose Token
// identifies it to Remove.
func (r *Registry) Add(collection, mountpoint string) (Entry, error) {
	doc, err := r.load()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Token:      uuid.NewString(),
		Collection: collection,
		Mountpoint: mountpoint,
		PID:        os.Getpid(),
		MountedAt:  float64(time.Now().UnixNano()) / 1e9,
	}
	doc.Mounts = append(doc.Mounts, e)
	if err := r.save(doc); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Remove drops the entry with the given token.
func (r *Registry) Remove(token string) error {
	doc, err := r.load()
	if err != nil {
		return err
	}
	out := doc.Mounts[:0]
	for _, e := range doc.Mounts {
		if e.Token != token {
			out = append(out, e)
		}
	}
	doc.Mounts = out
	return r.save(doc)
}

// List returns every currently registered mount session.
func (r *Registry) List() ([]Entry, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return doc.Mounts, nil
}
