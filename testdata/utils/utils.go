package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func Ptr[T any](v T) *T {
	return &v
}

// Fixture returns the contents of testdata/fixtures/<name>.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()

	_, file, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(file), "..", "fixtures", name)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}
