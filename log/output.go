package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	outputLock sync.Mutex
	output     io.Writer = os.Stdout
	useColor             = true
)

// SetOutput redirects all log lines to w. Colors are only used when writing
// to a terminal-like destination, which the caller signals via color.
func SetOutput(w io.Writer, color bool) {
	outputLock.Lock()
	defer outputLock.Unlock()

	output = w
	useColor = color
}

func writeLine(line *logLine) {
	outputLock.Lock()
	defer outputLock.Unlock()

	fmt.Fprintln(output, formatLine(line, useColor))
}

func writer() {
	defer close(shutdownDone)

	for {
		// wait until logs need to be processed
		select {
		case <-logsWaiting:
			logsWaitingFlag.UnSet()
		case <-forceEmptyingOfBuffer:
		case <-shutdownSignal:
			drain()
			writeLine(&logLine{
				msg:       "===== LOGGING STOPPED =====",
				level:     WarningLevel,
				timestamp: time.Now(),
			})
			return
		}

		drain()
	}
}

func drain() {
	for {
		select {
		case line := <-logBuffer:
			writeLine(line)
		default:
			return
		}
	}
}
