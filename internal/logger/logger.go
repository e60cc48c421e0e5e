package logger

import (
	"io"
	"log"
	"os"
)

var Log *log.Logger

// Init opens (or creates) the log file and points the package logger at it.
// An empty path sends everything to stderr instead.
func Init(logFilePath string) error {
	var out io.Writer = os.Stderr
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		out = file
	}

	Log = log.New(out, "", log.LstdFlags)
	Log.Println("Logger initialized.")
	return nil
}
