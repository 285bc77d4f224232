//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "records-api"
	ConsumerName = "records-board"

	StateRecordsBaseline = "records 1, 2 and 3 keyed 1000, 2000 and 3000"
	StateRecordsEmpty    = "no records exist"
)

const (
	FirstRecordID  int64 = 1
	SecondRecordID int64 = 2
	ThirdRecordID  int64 = 3
	MissingID      int64 = 404
)

// BaselineRecords is the fixture behind StateRecordsBaseline: id, sort order, name.
var BaselineRecords = []struct {
	ID        int64
	SortOrder int64
	Name      string
}{
	{FirstRecordID, 1000, "Record 1"},
	{SecondRecordID, 2000, "Record 2"},
	{ThirdRecordID, 3000, "Record 3"},
}

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the records board consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
