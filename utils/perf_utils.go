package utils

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// slowCallThreshold is the duration above which a call is logged at warn level.
const slowCallThreshold = 500 * time.Millisecond

// LogDuration logs how long a call took. Calls slower than slowCallThreshold are
// reported as warnings so they show up without debug logging enabled.
func LogDuration(functionName string, start time.Time, args ...interface{}) {
	duration := time.Since(start)
	logf := log.Debugf
	if duration > slowCallThreshold {
		logf = log.Warnf
	}
	if len(args) > 0 {
		logf("%s took %v with args %v", functionName, duration, args)
	} else {
		logf("%s took %v", functionName, duration)
	}
}
