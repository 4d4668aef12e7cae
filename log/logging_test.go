package log

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.buf.String()
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TraceLevel, ParseLevel("trace"))
	assert.Equal(t, WarningLevel, ParseLevel("Warning"))
	assert.Equal(t, CriticalLevel, ParseLevel("CRITICAL"))
	assert.Equal(t, Severity(0), ParseLevel("verbose"))
}

// test waiting
func TestLogging(t *testing.T) {
	out := &syncBuffer{}
	SetOutput(out, false)

	// before start, lines are written synchronously
	SetLogLevel(InfoLevel)
	Info("early line")
	assert.Contains(t, out.String(), "early line")

	err := Start()
	if err != nil {
		t.Errorf("start failed: %s", err)
	}
	assert.ErrorIs(t, Start(), ErrAlreadyStarted)

	// set levels (static random)
	SetLogLevel(WarningLevel)
	SetLogLevel(InfoLevel)
	SetLogLevel(ErrorLevel)
	SetLogLevel(DebugLevel)
	SetLogLevel(CriticalLevel)
	SetLogLevel(TraceLevel)

	// log
	Trace("Trace")
	Debug("Debug")
	Info("Info")
	Warning("Warning")
	Error("Error")
	Critical("Critical")

	// logf
	Tracef("Trace %s", "f")
	Debugf("Debug %s", "f")
	Infof("Info %s", "f")
	Warningf("Warning %s", "f")
	Errorf("Error %s", "f")
	Criticalf("Critical %s", "f")

	// play with levels
	SetLogLevel(CriticalLevel)
	Warning("suppressed warning")
	SetLogLevel(TraceLevel)

	// log invalid level
	log(0xFF, "msg")

	Shutdown()
	// a second shutdown is a no-op
	Shutdown()

	written := out.String()
	assert.Contains(t, written, "TRAC")
	assert.Contains(t, written, "Critical f")
	assert.Contains(t, written, "NONE")
	assert.Contains(t, written, "LOGGING STOPPED")
	assert.NotContains(t, written, "suppressed warning")

	// after shutdown, lines are written synchronously again
	Info("late line")
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("late line"))
	}, time.Second, 10*time.Millisecond)
}
