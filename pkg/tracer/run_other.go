//go:build !linux

package tracer

import (
	"context"

	"github.com/sirupsen/logrus"
)

func platformRun(_ context.Context, _ Options, _ *logrus.Logger) error {
	return ErrUnsupportedPlatform
}
