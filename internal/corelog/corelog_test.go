package corelog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWithNoOutputsIsSilentButValid(t *testing.T) {
	log, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if log == nil {
		t.Fatal("New returned a nil logger")
	}
	log.Info("should not panic even with no sinks configured")
}

func TestNewWritesJSONFileLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.log")
	log, err := New(Config{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Error("boom")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected file log content, got none")
	}
}

func TestNewRejectsUnwritableFilePath(t *testing.T) {
	_, err := New(Config{FilePath: filepath.Join(t.TempDir(), "missing-dir", "core.log")})
	if err == nil {
		t.Fatal("expected an error for an unwritable log path")
	}
}
