package log

import (
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/autotab/pkg/errors"
)

// InstallZerologWarnings routes library warnings through the given zerolog
// logger. Warning types implementing zerolog.LogObjectMarshaler are emitted
// as structured objects.
func InstallZerologWarnings(logger zerolog.Logger) {
	errors.SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			logger.Warn().Object("warning", m).Msg(w.Error())
			return
		}
		logger.Warn().Err(w).Msg("dataset warning")
	})
}
