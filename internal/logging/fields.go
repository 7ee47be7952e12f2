package logging

import "log/slog"

// Common field constructors so log attribute names stay consistent
// across the codebase.

func Service(name string) slog.Attr {
	return slog.String("service", name)
}

func Tenant(id string) slog.Attr {
	return slog.String("tenant", id)
}

func Table(name string) slog.Attr {
	return slog.String("table", name)
}

func EventIndex(i int) slog.Attr {
	return slog.Int("event_index", i)
}

func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
