// Package logger provides the node's subsystem-tagged logging backend:
// one backend writer per process, a *Logger per subsystem tag, each
// writing to stdout and to a rotating log file via
// github.com/jrick/logrotate/rotator. Grounded on kaspad's
// logger/log.go subsystem-map idiom; kaspad's own backend type lives
// in a sibling "logs" package that was not part of the retrieved source
// tree, so the small level/backend plumbing below is first-party rather
// than an import of a module this repo cannot actually resolve (see
// DESIGN.md).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrick/logrotate/rotator"
)

// Level is a logging severity, ordered least to most severe.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	case LevelCritical:
		return "CRT"
	}
	return "OFF"
}

// LevelFromString parses a level name, defaulting to LevelInfo for an
// unrecognized string.
func LevelFromString(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

// Logger writes tagged, leveled lines to a shared backend writer.
type Logger struct {
	tag   string
	level uint32
	out   io.Writer
}

func (l *Logger) write(level Level, args ...interface{}) {
	if level < Level(atomic.LoadUint32(&l.level)) {
		return
	}
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, l.tag, fmt.Sprint(args...))
	l.out.Write([]byte(line))
}

func (l *Logger) writef(level Level, format string, args ...interface{}) {
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Trace(args ...interface{})                 { l.write(LevelTrace, args...) }
func (l *Logger) Tracef(format string, args ...interface{}) { l.writef(LevelTrace, format, args...) }
func (l *Logger) Debug(args ...interface{})                 { l.write(LevelDebug, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.writef(LevelDebug, format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.write(LevelInfo, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.writef(LevelInfo, format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.write(LevelWarn, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.writef(LevelWarn, format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.write(LevelError, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.writef(LevelError, format, args...) }
func (l *Logger) Critical(args ...interface{})              { l.write(LevelCritical, args...) }
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.writef(LevelCritical, format, args...)
}

// SetLevel changes the minimum severity l emits at.
func (l *Logger) SetLevel(level Level) { atomic.StoreUint32(&l.level, uint32(level)) }

// subsystem tags, one per node component.
const (
	TagNode = "NODE" // node orchestrator
	TagCnss = "CNSS" // chain state / consensus
	TagMmpl = "MMPL" // mempool
	TagTask = "TASK" // tensor task engine
	TagMinr = "MINR" // miner
	TagNtwk = "NTWK" // p2p gossip & sync
	TagStor = "STOR" // persistent store
	TagRpcs = "RPCS" // node-to-miner / rpc interface
)

type multiWriter struct {
	writers []io.Writer
}

func (m *multiWriter) Write(p []byte) (int, error) {
	for _, w := range m.writers {
		w.Write(p)
	}
	return len(p), nil
}

var (
	mu          sync.Mutex
	rotatorOut  *rotator.Rotator
	backendOut  io.Writer = os.Stdout
	subsystems            = map[string]*Logger{}
	initialized bool
)

// InitLogRotator opens a rotating log file at logFile; log lines are
// written to both it and stdout from that point on. It must be called
// once during startup before log output matters, but loggers obtained
// from Get before this call remain valid - they simply buffer to stdout
// only until the rotator is attached.
func InitLogRotator(logFile string) error {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	rotatorOut = r
	backendOut = &multiWriter{writers: []io.Writer{os.Stdout, r}}
	initialized = true
	for _, l := range subsystems {
		l.out = backendOut
	}
	return nil
}

// Close releases the underlying rotator, if one was initialized.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotatorOut == nil {
		return nil
	}
	return rotatorOut.Close()
}

// Get returns (creating if necessary) the Logger for tag, defaulting to
// LevelInfo.
func Get(tag string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := subsystems[tag]; ok {
		return l
	}
	l := &Logger{tag: tag, level: uint32(LevelInfo), out: backendOut}
	subsystems[tag] = l
	return l
}

// SetLevel sets the level of the named subsystem. Unknown tags are
// ignored.
func SetLevel(tag string, level Level) {
	mu.Lock()
	l, ok := subsystems[tag]
	mu.Unlock()
	if !ok {
		return
	}
	l.SetLevel(level)
}

// SetLevels sets every known subsystem's level, creating the standard set
// first if none have been created yet.
func SetLevels(level Level) {
	for _, tag := range []string{TagNode, TagCnss, TagMmpl, TagTask, TagMinr, TagNtwk, TagStor, TagRpcs} {
		Get(tag).SetLevel(level)
	}
}

// ParseAndSetLevels applies a debug-level spec of either a single level
// name ("info") or a comma-separated list of tag=level pairs
// ("NTWK=debug,TASK=trace").
func ParseAndSetLevels(spec string) error {
	if !strings.Contains(spec, ",") && !strings.Contains(spec, "=") {
		level, ok := LevelFromString(spec)
		if !ok {
			return fmt.Errorf("invalid log level %q", spec)
		}
		SetLevels(level)
		return nil
	}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid subsystem=level pair %q", pair)
		}
		level, ok := LevelFromString(parts[1])
		if !ok {
			return fmt.Errorf("invalid log level %q", parts[1])
		}
		SetLevel(strings.ToUpper(parts[0]), level)
	}
	return nil
}

// SupportedSubsystems returns the sorted tags of every logger created so
// far.
func SupportedSubsystems() []string {
	mu.Lock()
	defer mu.Unlock()
	tags := make([]string, 0, len(subsystems))
	for tag := range subsystems {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
