// Package testing switches binaries into test mode and points the ledger at
// the in-memory store. Importing it for side effects is enough.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"FARMBOOKS_TEST_MODE": "1",
	"LEDGER_STORE":        "memory",
	"LOG_LEVEL":           "error",
}

var applyOnce sync.Once

// applyTestEnv sets each variable unless the caller already exported it.
func applyTestEnv() {
	applyOnce.Do(func() {
		for key, value := range testEnv {
			if _, set := os.LookupEnv(key); set {
				continue
			}
			_ = os.Setenv(key, value)
		}
	})
}

func init() {
	applyTestEnv()
}

func TestMain(m *stdtesting.M) {
	applyTestEnv()
	os.Exit(m.Run())
}
