// Package h2log adapts logrus to the h2.Logger interface the engine
// threads through its constructors (NewConnection's logger parameter),
// the role the teacher fills with a bare *log.Logger/fasthttp.Logger.
// Grounded on docker-compose's logrus.WithFields/module pattern
// (execution/log.go), adapted to a single Printf-shaped sink since
// that's all h2.Logger asks for.
package h2log

import "github.com/sirupsen/logrus"

// Logger implements h2.Logger by forwarding to a *logrus.Entry tagged
// with a module field, so log lines from different connections/streams
// can be told apart the way docker-compose's per-module entries are.
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger that tags every line with module.
func New(module string) *Logger {
	return &Logger{entry: logrus.WithField("module", module)}
}

// NewWithFields returns a Logger tagged with module plus the given
// extra fields, for a connection-scoped logger carrying e.g. a remote
// address.
func NewWithFields(module string, fields logrus.Fields) *Logger {
	f := logrus.Fields{"module": module}
	for k, v := range fields {
		f[k] = v
	}
	return &Logger{entry: logrus.WithFields(f)}
}

// Printf implements h2.Logger.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}
