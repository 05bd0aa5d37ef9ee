// Package pdfium owns the single global PDFium engine lifetime: one
// worker pool (not reference-counted) for the lifetime of the process, initialized
// lazily on first use and torn down once via Shutdown. Every PDF parse
// acquires its own instance from the pool and releases it on return, so
// document-scoped state never leaks across parses.
package pdfium

import (
	"fmt"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/single_threaded"
)

const instanceTimeout = 30 * time.Second

var (
	initOnce sync.Once
	pool     pdfium.Pool
)

// Acquire returns a worker instance from the global pool, initializing the
// pool on first call. Callers must Close the instance when done.
func Acquire() (pdfium.Instance, error) {
	initOnce.Do(func() {
		pool = single_threaded.Init(single_threaded.Config{})
	})
	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring pdfium instance: %w", err)
	}
	return instance, nil
}

// Shutdown releases the global pool. Safe to call even if no instance was
// ever acquired; intended to run once at process exit.
func Shutdown() {
	if pool != nil {
		pool.Close()
	}
}
