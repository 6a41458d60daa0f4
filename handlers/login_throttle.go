package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	maxFailedSignIns   = 5
	failedSignInWindow = 15 * time.Minute
)

type failedSignIns struct {
	count int
	last  time.Time
}

// signInFailures counts failed sign-ins per client address and username.
var signInFailures = NewTTLStore(failedSignInWindow, time.Minute, func(f *failedSignIns) time.Time {
	return f.last
})

func signInKey(c *fiber.Ctx, username string) string {
	return c.IP() + "|" + strings.ToLower(username)
}

// signInLocked reports whether key has used up its failed attempts.
func signInLocked(key string) bool {
	f, ok := signInFailures.Get(key)
	return ok && f.count >= maxFailedSignIns
}

func recordSignInFailure(key string) {
	signInFailures.Update(key, func(f *failedSignIns) *failedSignIns {
		if f == nil {
			f = &failedSignIns{}
		}
		f.count++
		f.last = time.Now()
		return f
	})
}

func resetSignInFailures(key string) {
	signInFailures.Delete(key)
}
