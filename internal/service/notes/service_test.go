package notes

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"notivate/internal/models"
	"notivate/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func sampleGuide(title string) *models.StudyGuide {
	return &models.StudyGuide{
		Title:   title,
		Subject: "Chemistry",
		Summary: "Ionic and covalent bonding.",
		Sections: []models.Section{
			{Heading: "Ionic bonds", Content: "Electron transfer between atoms.", KeyTerms: []string{"cation", "anion"}},
		},
		QuizQuestions: []models.QuizQuestion{
			{Question: "What is a cation?", Answer: "A positively charged ion", Difficulty: models.DifficultyEasy},
		},
	}
}

func TestSaveAndGetRoundtrip(t *testing.T) {
	svc, _ := newTestService(t)

	saved, err := svc.Save(context.Background(), "user-1", sampleGuide("Chemical Bonding"), "bonding notes")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 || saved.Title != "Chemical Bonding" {
		t.Fatalf("saved note = %+v", saved)
	}

	got, err := svc.Get(context.Background(), "user-1", saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RawText != "bonding notes" || got.StudyGuide == nil {
		t.Fatalf("fetched note = %+v", got)
	}
	if got.StudyGuide.Sections[0].KeyTerms[0] != "cation" {
		t.Fatalf("study guide payload lost detail: %+v", got.StudyGuide)
	}
}

func TestListIsScopedToOwnerNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Save(context.Background(), "user-1", sampleGuide("First"), "a")
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := svc.Save(context.Background(), "user-1", sampleGuide("Second"), "b")
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if _, err := svc.Save(context.Background(), "user-2", sampleGuide("Other"), "c"); err != nil {
		t.Fatalf("save other: %v", err)
	}

	list, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("list order = [%d, %d], want newest first", list[0].ID, list[1].ID)
	}
}

func TestGetAndDeleteEnforceOwnership(t *testing.T) {
	svc, _ := newTestService(t)

	saved, err := svc.Save(context.Background(), "user-1", sampleGuide("Mine"), "x")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := svc.Get(context.Background(), "user-2", saved.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("cross-user get err = %v, want ErrNoRows", err)
	}
	if err := svc.Delete(context.Background(), "user-2", saved.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("cross-user delete err = %v, want ErrNoRows", err)
	}

	if err := svc.Delete(context.Background(), "user-1", saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-1", saved.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete err = %v, want ErrNoRows", err)
	}
}
