package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdobak/go-xerrors"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// GetLogger returns the shared structured logger. Errors logged with
// slog.Any("error", err) are expanded into a message plus stack trace when the
// error carries one (xerrors.New attaches it).
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			ReplaceAttr: replaceAttr,
		})
		logger = slog.New(handler)
	})
	return logger
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			a.Value = fmtErr(v)
		}
	}
	return a
}

// fmtErr formats an error as a group with "msg" and, when available, "trace".
func fmtErr(err error) slog.Value {
	var groupValues []slog.Attr
	groupValues = append(groupValues, slog.String("msg", err.Error()))

	frames := marshalStack(err)
	if frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()
	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(
				filepath.Base(filepath.Dir(v.File)),
				filepath.Base(v.File),
			),
			Func: filepath.Base(v.Function),
			Line: v.Line,
		}
	}

	return s
}
