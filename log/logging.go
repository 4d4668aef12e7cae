package log

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

// concept
/*
- Logging function:
  - check if level is active
  - send data to backend via big buffered channel
- Backend:
  - wait until there are logs to write
  - write logs to stdout
- Channel overbuffering protection:
  - if buffer is full, trigger write
- Before Start():
  - lines are written synchronously, so that early errors are never lost
*/

// Severity describes a log level.
type Severity uint32

type logLine struct {
	msg       string
	level     Severity
	timestamp time.Time
	file      string
	line      int
}

// Log Levels.
const (
	TraceLevel    Severity = 1
	DebugLevel    Severity = 2
	InfoLevel     Severity = 3
	WarningLevel  Severity = 4
	ErrorLevel    Severity = 5
	CriticalLevel Severity = 6
)

var (
	logBuffer             = make(chan *logLine, 1024)
	forceEmptyingOfBuffer = make(chan struct{})

	logLevelInt = uint32(InfoLevel)
	logLevel    = &logLevelInt

	logsWaiting     = make(chan struct{}, 1)
	logsWaitingFlag = abool.NewBool(false)

	shutdownSignal = make(chan struct{})
	shutdownDone   = make(chan struct{})

	started  = abool.NewBool(false)
	stopping = abool.NewBool(false)

	// ErrAlreadyStarted is returned by Start if logging was already started.
	ErrAlreadyStarted = errors.New("logging already started")
)

// SetLogLevel sets a new log level. Only lines with the given or a higher
// severity are written.
func SetLogLevel(level Severity) {
	atomic.StoreUint32(logLevel, uint32(level))
}

// GetLogLevel returns the current log level.
func GetLogLevel() Severity {
	return Severity(atomic.LoadUint32(logLevel))
}

// ParseLevel returns the level for the given name, or 0 if the name is
// unknown.
func ParseLevel(level string) Severity {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	}
	return 0
}

// Start starts the background writer. Lines logged before Start are written
// synchronously.
func Start() error {
	if !started.SetToIf(false, true) {
		return ErrAlreadyStarted
	}

	go writer()
	return nil
}

// Shutdown writes all pending lines and stops the background writer.
func Shutdown() {
	if !started.IsSet() || !stopping.SetToIf(false, true) {
		return
	}
	close(shutdownSignal)
	<-shutdownDone
}
