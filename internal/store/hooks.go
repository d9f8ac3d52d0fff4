package store

import (
	"log/slog"

	"bobemploi/internal/reducer"
)

// LogHook logs every intent at debug level, and failed requests at warn.
func LogHook(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(in reducer.Intent, prev, next *reducer.State) {
		attrs := []any{"intent", in.IntentType(), "changed", prev != next}
		if a, ok := in.(reducer.AsyncIntent); ok {
			st := a.AsyncState()
			attrs = append(attrs, "status", string(st.Status))
			if st.Status == reducer.Failed {
				logger.Warn("request failed", append(attrs, "error", st.Err)...)
				return
			}
		}
		logger.Debug("dispatch", attrs...)
	}
}
