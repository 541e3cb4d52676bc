package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Expected journal to open, got %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func passRecord(source string, at time.Time) *Record {
	record := &Record{
		Source: source,
		Time:   at,
		Result: ResultApplied,
	}
	record.Stats.Pools.Created = 1
	return record
}

func TestAppendAndList(t *testing.T) {
	store, _ := openStore(t)
	base := time.Date(2017, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, source := range []string{"first", "second", "third"} {
		if err := store.Append(passRecord(source, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Expected append to succeed, got %v", err)
		}
	}

	records, err := store.List(0)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].Source != "third" || records[2].Source != "first" {
		t.Errorf("Expected newest-first order, got %s, %s, %s",
			records[0].Source, records[1].Source, records[2].Source)
	}
	if records[0].Stats.Pools.Created != 1 {
		t.Errorf("Expected stats to round-trip, got %+v", records[0].Stats)
	}

	limited, err := store.List(2)
	if err != nil {
		t.Fatalf("Expected limited list to succeed, got %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 records with limit, got %d", len(limited))
	}
	if limited[0].Source != "third" {
		t.Errorf("Expected limit to keep newest, got %s", limited[0].Source)
	}
}

func TestAppendFillsIdentity(t *testing.T) {
	store, _ := openStore(t)

	record := &Record{Source: "marathon", Result: ResultApplied}
	if err := store.Append(record); err != nil {
		t.Fatalf("Expected append to succeed, got %v", err)
	}

	if record.ID == "" {
		t.Error("Expected an ID to be assigned")
	}
	if record.Time.IsZero() {
		t.Error("Expected a timestamp to be assigned")
	}

	records, err := store.List(0)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(records) != 1 || records[0].ID != record.ID {
		t.Errorf("Expected the stored record back, got %+v", records)
	}
}

func TestPrune(t *testing.T) {
	store, _ := openStore(t)
	base := time.Date(2017, 3, 1, 12, 0, 0, 0, time.UTC)

	sources := []string{"first", "second", "third", "fourth", "fifth"}
	for i, source := range sources {
		if err := store.Append(passRecord(source, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Expected append to succeed, got %v", err)
		}
	}

	if err := store.Prune(2); err != nil {
		t.Fatalf("Expected prune to succeed, got %v", err)
	}

	records, err := store.List(0)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records after prune, got %d", len(records))
	}
	if records[0].Source != "fifth" || records[1].Source != "fourth" {
		t.Errorf("Expected newest records kept, got %s, %s", records[0].Source, records[1].Source)
	}
}

func TestPruneKeepsEverythingWhenUnderLimit(t *testing.T) {
	store, _ := openStore(t)

	if err := store.Append(passRecord("only", time.Now().UTC())); err != nil {
		t.Fatalf("Expected append to succeed, got %v", err)
	}
	if err := store.Prune(10); err != nil {
		t.Fatalf("Expected prune to succeed, got %v", err)
	}
	if err := store.Prune(0); err != nil {
		t.Fatalf("Expected disabled prune to succeed, got %v", err)
	}

	records, err := store.List(0)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected record to survive, got %d", len(records))
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Expected journal to open, got %v", err)
	}
	if err := store.Append(passRecord("marathon", time.Now().UTC())); err != nil {
		t.Fatalf("Expected append to succeed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Expected close to succeed, got %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Expected reopen to succeed, got %v", err)
	}
	defer reopened.Close()

	records, err := reopened.List(0)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(records) != 1 || records[0].Source != "marathon" {
		t.Errorf("Expected persisted record, got %+v", records)
	}
}
