// Package run runs a service until it is interrupted.
package run

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/safing/portsync/log"
)

var (
	printStackOnExit   bool
	enableInputSignals bool

	// ShutdownTimeout is the time stop may take before the program is force quit.
	ShutdownTimeout = 3 * time.Minute

	sigUSR1 = syscall.Signal(0xa) // dummy for windows
)

func init() {
	flag.BoolVar(&printStackOnExit, "print-stack-on-exit", false, "prints the stack before of shutting down")
	flag.BoolVar(&enableInputSignals, "input-signals", false, "emulate signals using stdin")
}

// Run calls start, waits for an interrupt signal or for done to be closed,
// and then calls stop. It returns the exit code of the program.
func Run(start func() error, stop func() error, done <-chan struct{}) int {
	if err := start(); err != nil {
		log.Errorf("main: failed to start: %s", err)
		if printStackOnExit {
			printStackTo(os.Stdout)
		}
		_ = stop()
		return 1
	}

	signalCh := make(chan os.Signal, 1)
	if enableInputSignals {
		go inputSignals(signalCh, os.Stdin)
	}
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		sigUSR1,
	)
	defer signal.Stop(signalCh)

signalLoop:
	for {
		select {
		case sig := <-signalCh:
			// only print and continue to wait if SIGUSR1
			if sig == sigUSR1 {
				_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
				continue signalLoop
			}

			fmt.Println(" <INTERRUPT>")
			log.Warning("main: program was interrupted, shutting down.")

			forceCnt := 5
			// catch signals during shutdown
			go func() {
				for {
					<-signalCh
					forceCnt--
					if forceCnt > 0 {
						fmt.Printf(" <INTERRUPT> again, but already shutting down. %d more to force.\n", forceCnt)
					} else {
						fmt.Fprintln(os.Stderr, "===== FORCED EXIT =====")
						printStackTo(os.Stderr)
						os.Exit(1)
					}
				}
			}()
			break signalLoop

		case <-done:
			break signalLoop
		}
	}

	if printStackOnExit {
		printStackTo(os.Stdout)
	}

	timeout := time.AfterFunc(ShutdownTimeout, func() {
		fmt.Fprintln(os.Stderr, "===== TAKING TOO LONG FOR SHUTDOWN =====")
		printStackTo(os.Stderr)
		os.Exit(1)
	})
	defer timeout.Stop()

	if err := stop(); err != nil {
		log.Errorf("main: failed to shut down: %s", err)
		return 1
	}
	return 0
}

func inputSignals(signalCh chan os.Signal, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		switch scanner.Text() {
		case "SIGHUP":
			signalCh <- syscall.SIGHUP
		case "SIGINT":
			signalCh <- syscall.SIGINT
		case "SIGQUIT":
			signalCh <- syscall.SIGQUIT
		case "SIGTERM":
			signalCh <- syscall.SIGTERM
		case "SIGUSR1":
			signalCh <- sigUSR1
		}
	}
}

func printStackTo(writer io.Writer) {
	fmt.Fprintln(writer, "=== PRINTING TRACES ===")
	fmt.Fprintln(writer, "=== GOROUTINES ===")
	_ = pprof.Lookup("goroutine").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== BLOCKING ===")
	_ = pprof.Lookup("block").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== MUTEXES ===")
	_ = pprof.Lookup("mutex").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== END TRACES ===")
}
