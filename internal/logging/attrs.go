package logging

import "log/slog"

// FieldComponent identifies the subsystem emitting a log line. The console
// handler lifts it into the message prefix.
const FieldComponent = "component"

// Attr aliases slog.Attr so callers only import this package.
type Attr = slog.Attr

func Component(name string) Attr { return slog.String(FieldComponent, name) }

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
