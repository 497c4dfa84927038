// Package testsupport holds helpers shared by the package tests: fixture
// loading and a cache.Store whose failures the test controls.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// FixturePath returns the path of filename inside the package testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// LoadFixture reads a fixture file, failing the test when it is missing.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes a JSON fixture into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteFixture writes data under a fresh temporary directory and returns its
// path. The directory is removed when the test ends.
func WriteFixture(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}
