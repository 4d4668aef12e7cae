// Package metrics collects operation metrics and exposes them in the
// Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Prefix is prepended to all metric names.
const Prefix = "portsync_"

var set = vm.NewSet()

// Labels are metric labels.
type Labels map[string]string

// ID returns the full metric name with sorted labels.
func ID(name string, labels Labels) string {
	if len(labels) == 0 {
		return Prefix + name
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", key, labels[key]))
	}
	return Prefix + name + "{" + strings.Join(pairs, ",") + "}"
}

// Operation records an adapter operation and its result.
func Operation(op, result string, start time.Time) {
	set.GetOrCreateCounter(ID("operations_total", Labels{"op": op, "result": result})).Inc()
	set.GetOrCreateHistogram(ID("operation_duration_seconds", Labels{"op": op})).UpdateDuration(start)
}

// Event records an emitted record event.
func Event(scope, event string) {
	set.GetOrCreateCounter(ID("events_total", Labels{"scope": scope, "event": event})).Inc()
}

// HTTPRequest records a served API request.
func HTTPRequest(route string, status int, start time.Time) {
	set.GetOrCreateCounter(ID("http_requests_total", Labels{"route": route, "status": fmt.Sprint(status)})).Inc()
	set.GetOrCreateHistogram(ID("http_request_duration_seconds", Labels{"route": route})).UpdateDuration(start)
}

// Counter returns the current value of a counter, or 0 if it does not exist.
func Counter(name string, labels Labels) uint64 {
	return set.GetOrCreateCounter(ID(name, labels)).Get()
}

// WritePrometheus writes all metrics, including process metrics if
// withProcess is set.
func WritePrometheus(w io.Writer, withProcess bool) {
	set.WritePrometheus(w)
	if withProcess {
		vm.WriteProcessMetrics(w)
	}
}
