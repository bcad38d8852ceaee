package tabular

import "github.com/sirupsen/logrus"

// newDefaultLogger builds the engine's quiet default: structured JSON at
// warn level, so hardening rejections surface and nothing else does
// unless the caller injects a logger of their own.
func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	return l
}

// pkgLog backs the package-level entry points that run without an engine,
// ParseXML in particular.
var pkgLog = newDefaultLogger()
