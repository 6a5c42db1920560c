package funcs

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
	"github.com/fhirlang/gofhir/pkg/fhirpath/types"
)

// TraceLogger receives trace() call entries. Swap the package default with
// SetTraceLogger, e.g. NullTraceLogger{} to silence trace output entirely.
type TraceLogger interface {
	Log(entry TraceEntry)
}

// TraceEntry is one trace() invocation: the collection it saw and, if the
// call supplied a projection argument, the projected collection too.
type TraceEntry struct {
	Timestamp  time.Time   `json:"timestamp"`
	Name       string      `json:"name"`
	Input      interface{} `json:"input"`
	Projection interface{} `json:"projection,omitempty"`
	Count      int         `json:"count"`
}

// DefaultTraceLogger writes trace entries to a writer, either as
// human-readable "[trace] name: { ... }" lines or one JSON object per line.
type DefaultTraceLogger struct {
	mu         sync.Mutex
	writer     io.Writer
	jsonOutput bool
}

func NewDefaultTraceLogger(writer io.Writer, jsonFormat bool) *DefaultTraceLogger {
	return &DefaultTraceLogger{writer: writer, jsonOutput: jsonFormat}
}

func (l *DefaultTraceLogger) Log(entry TraceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonOutput {
		data, _ := json.Marshal(entry)
		l.writer.Write(data)
		l.writer.Write([]byte("\n"))
		return
	}

	label := "[trace] "
	if entry.Name != "" {
		label = "[trace] " + entry.Name + ": "
	}
	io.WriteString(l.writer, label+formatCollection(entry.Input)+"\n")
	if entry.Projection != nil {
		io.WriteString(l.writer, "[trace] "+entry.Name+" projection: "+formatCollection(entry.Projection)+"\n")
	}
}

// NullTraceLogger discards every entry.
type NullTraceLogger struct{}

func (NullTraceLogger) Log(TraceEntry) {}

var (
	activeTraceLogger   TraceLogger = NewDefaultTraceLogger(os.Stderr, false)
	activeTraceLoggerMu sync.RWMutex
)

func SetTraceLogger(logger TraceLogger) {
	activeTraceLoggerMu.Lock()
	defer activeTraceLoggerMu.Unlock()
	activeTraceLogger = logger
}

func GetTraceLogger() TraceLogger {
	activeTraceLoggerMu.RLock()
	defer activeTraceLoggerMu.RUnlock()
	return activeTraceLogger
}

func formatCollection(input interface{}) string {
	col, ok := input.(types.Collection)
	if !ok {
		data, _ := json.Marshal(input)
		return string(data)
	}
	if col.Empty() {
		return "{ }"
	}
	parts := make([]string, len(col))
	for i, item := range col {
		parts[i] = item.String()
	}
	joined := "{ "
	for i, p := range parts {
		if i > 0 {
			joined += ", "
		}
		joined += p
	}
	return joined + " }"
}

// collectionToInterface flattens a Collection into a JSON-friendly slice of
// its items' string forms, for embedding inside a TraceEntry.
func collectionToInterface(col types.Collection) interface{} {
	if col.Empty() {
		return []interface{}{}
	}
	out := make([]interface{}, len(col))
	for i, item := range col {
		out[i] = item.String()
	}
	return out
}

func init() {
	register([]FuncDef{
		{Name: "trace", MinArgs: 1, MaxArgs: 2, Fn: traceFn},
		// now/today/timeOfDay are registered again here, deliberately
		// shadowing the ones in temporal.go: Go runs init() functions in
		// filename order within a package, and "utility.go" sorts after
		// "temporal.go", so these registrations are the ones that end up
		// live in the registry.
		{Name: "now", MinArgs: 0, MaxArgs: 0, Fn: wallClockNowFn},
		{Name: "today", MinArgs: 0, MaxArgs: 0, Fn: wallClockTodayFn},
		{Name: "timeOfDay", MinArgs: 0, MaxArgs: 0, Fn: wallClockTimeOfDayFn},
	})
}

func traceFn(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	name := ""
	if n, ok := toStringArg(args[0]); ok {
		name = n
	}

	entry := TraceEntry{
		Timestamp: time.Now(),
		Name:      name,
		Input:     collectionToInterface(input),
		Count:     len(input),
	}
	if len(args) > 1 {
		if projection, ok := args[1].(types.Collection); ok {
			entry.Projection = collectionToInterface(projection)
		}
	}

	GetTraceLogger().Log(entry)
	return input, nil
}

// wallClockNowFn formats time.Now() through the DateTime parser rather than
// a constructor, so it picks up the same validation/precision rules any
// parsed literal would.
func wallClockNowFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	dt, err := types.NewDateTime(time.Now().Format("2006-01-02T15:04:05.000-07:00"))
	if err != nil {
		return types.Collection{}, nil
	}
	return types.Collection{dt}, nil
}

func wallClockTodayFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	d, err := types.NewDate(time.Now().Format("2006-01-02"))
	if err != nil {
		return types.Collection{}, nil
	}
	return types.Collection{d}, nil
}

func wallClockTimeOfDayFn(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	t, err := types.NewTime(time.Now().Format("15:04:05.000"))
	if err != nil {
		return types.Collection{}, nil
	}
	return types.Collection{t}, nil
}
