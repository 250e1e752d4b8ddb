package api

import (
	"io"
	"log"
	"os"
	"time"
)

// NewLogger returns a request logger writing to stderr, or discarding when quiet
func NewLogger(verbose bool) *log.Logger {
	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	return log.New(w, "", log.LstdFlags)
}

// LogRequest logs an API request being made.
func LogRequest(l *log.Logger, provider, method, route string, params map[string][]string) {
	if len(params) > 0 {
		l.Printf("[%s] %s %s params=%v", provider, method, route, params)
	} else {
		l.Printf("[%s] %s %s", provider, method, route)
	}
}

// LogResponse logs an API response received.
func LogResponse(l *log.Logger, provider string, statusCode int, duration time.Duration, size int) {
	l.Printf("[%s] response status=%d duration=%dms bytes=%d",
		provider, statusCode, duration.Milliseconds(), size)
}

// LogError logs an error from an API operation.
func LogError(l *log.Logger, provider, operation string, err error) {
	l.Printf("[%s] %s error: %v", provider, operation, err)
}

// LogThrottled logs a request held back by the rate limiter.
func LogThrottled(l *log.Logger, provider, route string) {
	l.Printf("[%s] rate limited, waiting %s", provider, route)
}
