package output

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// OpenSink opens path for the report. An empty path, or a path that cannot be
// created, yields stdout; the latter is logged as a warning so the run can
// still produce its report.
func OpenSink(path string, logger *logrus.Logger) io.WriteCloser {
	if path == "" {
		return nopCloser{os.Stdout}
	}
	f, err := os.Create(path)
	if err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Warn("Cannot open output file, falling back to stdout")
		}
		return nopCloser{os.Stdout}
	}
	return f
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
