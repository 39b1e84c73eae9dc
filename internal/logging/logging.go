// Package logging wires up the process-wide rotating log file (§6 "Log file
// layout"). The Repo Gateway and every other package log through
// logrus.FieldLogger; this package only decides where those records land.
package logging

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFile = ".lockstep-rebase/lockstep-rebase.log"

// Init points the root logrus logger at a rotating file, honoring
// LOCKSTEP_REBASE_LOG as an override path. It never writes to stdout/stderr
// so it doesn't interleave with the CLI's own rendering.
func Init(level logrus.Level, overridePath string) error {
	path := overridePath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, defaultLogFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	logrus.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	})
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logrus.SetLevel(level)
	return nil
}
