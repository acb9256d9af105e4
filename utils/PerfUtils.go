package utils

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

func PerfLog(elapsed time.Duration, threshold time.Duration, format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)
	if elapsed > threshold {
		logrus.Warnf("PERF: %s took %d ms more than expected (%d ms)", str, elapsed.Milliseconds(), threshold.Milliseconds())
	} else {
		logrus.Debugf("PERF: %s took %dms", str, elapsed.Milliseconds())
	}
}
