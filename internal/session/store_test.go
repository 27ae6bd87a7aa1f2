package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreWithPath(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSessionCRUD(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sess := &Session{
		ID:        "s1",
		Name:      "sketches",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Model:     "gemini-2.0-flash-exp-image-generation",
	}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Name != "sketches" || got.Model != sess.Model {
		t.Errorf("GetSession() = %+v", got)
	}

	sess.Name = "renamed"
	sess.CurrentIterationID = "i1"
	if err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	got, err = store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed" || got.CurrentIterationID != "i1" {
		t.Errorf("after update = %+v", got)
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx, "s1"); err == nil {
		t.Error("GetSession() after delete expected error")
	}
}

func TestStoreIterations(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sess := &Session{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now(), Model: "m"}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	iters := []*Iteration{
		{ID: "i1", SessionID: "s1", Operation: OpGenerate, Prompt: "a city", ResponseText: "ok", Model: "m", ImagePath: "/p/1.png", Timestamp: time.Now()},
		{ID: "i2", SessionID: "s1", ParentID: "i1", Operation: OpModify, Prompt: "taller", Model: "m", Timestamp: time.Now().Add(time.Second)},
	}
	for _, iter := range iters {
		if err := store.CreateIteration(ctx, iter); err != nil {
			t.Fatalf("CreateIteration(%s) error = %v", iter.ID, err)
		}
	}

	got, err := store.GetIteration(ctx, "i1")
	if err != nil {
		t.Fatalf("GetIteration() error = %v", err)
	}
	if got.ResponseText != "ok" || got.ImagePath != "/p/1.png" || got.ParentID != "" {
		t.Errorf("GetIteration(i1) = %+v", got)
	}

	// Optional columns round-trip as empty strings.
	got, err = store.GetIteration(ctx, "i2")
	if err != nil {
		t.Fatal(err)
	}
	if got.ResponseText != "" || got.ImagePath != "" || got.ParentID != "i1" {
		t.Errorf("GetIteration(i2) = %+v", got)
	}

	list, err := store.ListIterations(ctx, "s1")
	if err != nil {
		t.Fatalf("ListIterations() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "i1" || list[1].ID != "i2" {
		t.Errorf("ListIterations() = %+v", list)
	}

	count, err := store.CountIterations(ctx, "s1")
	if err != nil || count != 2 {
		t.Errorf("CountIterations() = (%d, %v), want 2", count, err)
	}
}

func TestListSessionsOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	older := &Session{ID: "old", CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour), Model: "m"}
	newer := &Session{ID: "new", CreatedAt: time.Now(), UpdatedAt: time.Now(), Model: "m"}
	for _, s := range []*Session{older, newer} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "new" {
		t.Errorf("ListSessions() order = %+v", list)
	}
}
