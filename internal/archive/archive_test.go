package archive

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mb-mentor/internal/session"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Conversation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Fresh table per test.
	db.Exec("DELETE FROM conversations")
	return NewStore(db)
}

func sampleSession(t *testing.T) *session.Session {
	t.Helper()
	sess := session.New("sess-1", 7, "music")
	if err := sess.AppendUser("I made a beat"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	sess.AppendAssistant("Why that rhythm?")
	sess.RecordSummary("explored rhythm")
	return sess
}

func TestArchive_CreateAndGet(t *testing.T) {
	store := setupStore(t)
	sess := sampleSession(t)

	conv, err := store.Archive(sess)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if conv.ID == 0 || conv.Mentor != "music" || conv.Summary != "explored rhythm" {
		t.Errorf("unexpected archive row: %+v", conv)
	}

	got, err := store.Get(7, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	doc, err := got.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.Mentor != "music" || len(doc.MsgHistory) != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestArchive_UpsertsPerSession(t *testing.T) {
	store := setupStore(t)
	sess := sampleSession(t)

	first, err := store.Archive(sess)
	if err != nil {
		t.Fatalf("first Archive: %v", err)
	}
	sess.AppendAssistant("What did you learn?")
	second, err := store.Archive(sess)
	if err != nil {
		t.Fatalf("second Archive: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-archiving created a new row: %d vs %d", first.ID, second.ID)
	}

	convs, err := store.List(7)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("expected one archived conversation, got %d", len(convs))
	}
}

func TestArchive_OwnershipEnforced(t *testing.T) {
	store := setupStore(t)
	conv, err := store.Archive(sampleSession(t))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := store.Get(99, conv.ID); err == nil {
		t.Errorf("expected error for foreign user")
	}
}

func TestArchive_RoundTripImport(t *testing.T) {
	store := setupStore(t)
	conv, err := store.Archive(sampleSession(t))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	doc, err := conv.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	restored := session.New("sess-2", 7, "meta")
	if err := restored.Load(doc); err != nil {
		t.Fatalf("Load archived document: %v", err)
	}
	if restored.Mentor() != "music" || len(restored.Transcript()) != 2 {
		t.Errorf("restored mentor=%q transcript=%d", restored.Mentor(), len(restored.Transcript()))
	}
}
