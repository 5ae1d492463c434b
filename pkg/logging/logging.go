// Package logging configures the engine's structured logger. STAG_LOG=1
// raises the level to trace and tees output to both stderr and a log file,
// matching the source's "trace logging to standard error and teed into a
// file (used by tests)".
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OpTag and SQLTag group log lines by subsystem, mirroring the source's
// `target: OP_TAG` / `target: SQL_TAG` log targets.
const (
	OpTag  = "supertag_op"
	SQLTag = "supertag_sql"
)

// Setup builds a new logrus logger configured from the STAG_LOG
// environment variable and returns it. logDir is the collection's config
// directory, where a "supertag.log" file is created when tracing is on.
func Setup(logDir string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if os.Getenv("STAG_LOG") != "1" {
		log.SetOutput(io.Discard)
		log.SetLevel(logrus.ErrorLevel)
		return log, nil
	}

	log.SetLevel(logrus.TraceLevel)

	if logDir == "" {
		log.SetOutput(os.Stderr)
		return log, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "supertag.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, nil
}

// NewOpID returns a fresh correlation id for a single bridge operation, so
// interleaved calls from different kernel threads can be told
// apart in the log stream.
func NewOpID() string {
	return uuid.NewString()
}
