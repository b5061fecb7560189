package diag

import "go.uber.org/zap"

// ZapReporter forwards diagnostics to a zap logger with structured fields.
type ZapReporter struct {
	Log *zap.Logger
}

func (r ZapReporter) Report(code Code, sev Severity, primary Loc, msg string, notes []Note) {
	if r.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("code", code.ID()),
		zap.String("title", code.Title()),
		zap.Stringer("at", primary),
	}
	if primary.Node != 0 {
		fields = append(fields, zap.Uint32("node", uint32(primary.Node)))
	}
	for _, n := range notes {
		fields = append(fields, zap.String("note", n.At.String()+" "+n.Msg))
	}
	switch sev {
	case SevError:
		r.Log.Error(msg, fields...)
	case SevWarning:
		r.Log.Warn(msg, fields...)
	default:
		r.Log.Debug(msg, fields...)
	}
}
