// Package sl holds small helpers for structured slog attributes.
package sl

import "log/slog"

// Err returns an "error" attribute with the error text.
//
//	log.Error("failed to load warranties", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op returns the "op" attribute used to tag log lines with the calling operation.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
