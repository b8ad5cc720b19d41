// Package logger wraps the standard logger and forwards errors to Rollbar
// when a token is configured.
package logger

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
)

var rollbarEnabled atomic.Bool

type Options struct {
	Token       string
	Environment string
	Version     string
}

// Init configures Rollbar. With an empty token only stdlib logging is used.
func Init(opts Options) {
	if opts.Token == "" {
		rollbar.SetEnabled(false)
		rollbarEnabled.Store(false)
		return
	}
	host, _ := os.Hostname()
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Environment)
	rollbar.SetCodeVersion(opts.Version)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	rollbarEnabled.Store(true)
	log.Printf("[logger] rollbar reporting enabled (%s)", opts.Environment)
}

// Close flushes pending Rollbar items.
func Close() {
	if rollbarEnabled.Load() {
		rollbar.Close()
	}
}

func Infof(format string, args ...interface{}) {
	log.Printf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if rollbarEnabled.Load() {
		rollbar.Warning(msg)
	}
}

// Errorf logs and reports. A trailing error argument is sent to Rollbar as
// the error value so its type is preserved.
func Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if !rollbarEnabled.Load() {
		return
	}
	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			rollbar.Error(err, map[string]interface{}{"message": msg})
			return
		}
	}
	rollbar.Error(msg)
}

// RequestError reports a failure tied to an HTTP request.
func RequestError(r *http.Request, err error) {
	log.Printf("[http] %s %s: %v", r.Method, r.URL.Path, err)
	if rollbarEnabled.Load() {
		rollbar.RequestError(rollbar.ERR, r, err)
	}
}
