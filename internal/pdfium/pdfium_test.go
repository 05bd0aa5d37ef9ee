package pdfium

import "testing"

func TestShutdownWithoutAcquireIsSafe(t *testing.T) {
	Shutdown()
}
