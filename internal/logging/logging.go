// Package logging sets up the global zerolog logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ParseLevel maps debug, info, warn and error. Anything else is info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// Setup points log.Logger at a console writer on stderr and, when file is set,
// also at a plain-text copy appended to file. The returned func closes the file.
func Setup(fs afero.Fs, level, file string) (func() error, error) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}

	if file == "" {
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
		return func() error { return nil }, nil
	}

	logFile, err := fs.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{
		Out:        logFile,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}
	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)
	log.Logger = zerolog.New(multiWriter).With().Timestamp().Logger()
	return logFile.Close, nil
}
