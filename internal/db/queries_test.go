package db

import (
	"context"
	"testing"
)

func TestPutAndGetSnapshot(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := PutSnapshot(ctx, db, "ui-storage", `{"state":{"theme":"dark"},"version":1}`); err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}

	data, found, err := GetSnapshot(ctx, db, "ui-storage")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}
	if data != `{"state":{"theme":"dark"},"version":1}` {
		t.Errorf("data = %q", data)
	}
}

func TestGetSnapshot_Missing(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	data, found, err := GetSnapshot(context.Background(), db, "nope")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if found {
		t.Error("expected found = false")
	}
	if data != "" {
		t.Errorf("data = %q, want empty", data)
	}
}

func TestPutSnapshot_Overwrites(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := PutSnapshot(ctx, db, "k", "first"); err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}
	if err := PutSnapshot(ctx, db, "k", "second"); err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}

	data, _, err := GetSnapshot(ctx, db, "k")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if data != "second" {
		t.Errorf("data = %q, want %q", data, "second")
	}

	all, err := ListSnapshots(ctx, db)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(ListSnapshots) = %d, want 1", len(all))
	}
}

func TestDeleteSnapshot(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := PutSnapshot(ctx, db, "project-storage", "{}"); err != nil {
		t.Fatalf("PutSnapshot failed: %v", err)
	}
	if err := DeleteSnapshot(ctx, db, "project-storage"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if _, found, _ := GetSnapshot(ctx, db, "project-storage"); found {
		t.Error("snapshot should be gone after delete")
	}

	// Deleting again is a no-op
	if err := DeleteSnapshot(ctx, db, "project-storage"); err != nil {
		t.Errorf("second DeleteSnapshot failed: %v", err)
	}
}

func TestListSnapshots_Ordered(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	for _, k := range []string{"ui-storage", "project-storage"} {
		if err := PutSnapshot(ctx, db, k, "{}"); err != nil {
			t.Fatalf("PutSnapshot(%s) failed: %v", k, err)
		}
	}

	all, err := ListSnapshots(ctx, db)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Key != "project-storage" || all[1].Key != "ui-storage" {
		t.Errorf("keys = [%s %s], want sorted", all[0].Key, all[1].Key)
	}
	if all[0].UpdatedAt == 0 {
		t.Error("UpdatedAt should be set")
	}
}
