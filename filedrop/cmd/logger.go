package cmd

import (
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/je4/utils/v2/pkg/stashconfig"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	ublogger "gitlab.switch.ch/ub-unibas/go-ublogger/v2"
)

// createLogger builds the logger described by the [Log] section. The
// returned function closes the log file and the logstash connection.
func createLogger(logConf stashconfig.Config) (zLogger.ZLogger, func(), error) {
	if _, err := zerolog.ParseLevel(strings.ToLower(logConf.Level)); err != nil {
		return nil, nil, errors.Wrapf(err, "unknown log level '%s'", logConf.Level)
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	_logger, _logstash, _logfile, err := ublogger.CreateUbMultiLoggerTLS(logConf.Level, logConf.File,
		ublogger.SetDataset(logConf.Stash.Dataset),
		ublogger.SetLogStash(logConf.Stash.LogstashHost, logConf.Stash.LogstashPort, logConf.Stash.Namespace, logConf.Stash.LogstashTraceLevel),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot create logger")
	}
	closer := func() {
		if _logstash != nil {
			_logstash.Close()
		}
		if _logfile != nil {
			_logfile.Close()
		}
	}

	l2 := _logger.With().Timestamp().Str("host", hostname).Logger()
	return &l2, closer, nil
}
