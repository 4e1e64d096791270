package logger

import (
	"fmt"
	"log"
	"strings"
)

type BasicLogger struct {
	verbose bool
}

func NewLogger(verbose bool) *BasicLogger {
	return &BasicLogger{verbose: verbose}
}

func (l *BasicLogger) Info(msg string, args ...any) {
	l.printLines("", msg, args...)
}

func (l *BasicLogger) Warn(msg string, args ...any) {
	l.printLines("Warning: ", msg, args...)
}

func (l *BasicLogger) Error(msg string, args ...any) {
	l.printLines("Error: ", msg, args...)
}

func (l *BasicLogger) Debug(msg string, args ...any) {
	if !l.verbose {
		return
	}
	l.printLines("Debug: ", msg, args...)
}

func (l *BasicLogger) Title(msg string, args ...any) {
	formatted := strings.Trim(fmt.Sprintf(msg, args...), "\n")
	log.Printf("")
	log.Printf("%s", strings.ToUpper(formatted))
	log.Printf("%s", strings.Repeat("=", len(formatted)))
}

func (l *BasicLogger) printLines(prefix, msg string, args ...any) {
	// format the message once
	formatted := fmt.Sprintf(msg, args...)

	// split into lines
	lines := strings.Split(strings.TrimSuffix(formatted, "\n"), "\n")

	for _, line := range lines {
		log.Printf("%s%s", prefix, line)
	}
}
