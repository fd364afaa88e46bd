package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newSubmission(id, owner string, createdAt time.Time) *models.Submission {
	return &models.Submission{
		ID:          id,
		StudentID:   owner,
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeText,
		Content:     "Ma réponse",
		Status:      models.StatusPending,
		EditCode:    "ABC123",
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(30 * 24 * time.Hour),
	}
}

func setupSubmissionRepo(t *testing.T) (*SubmissionRepository, *kvstore.MemoryStore, *fakeClock) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	clock := &fakeClock{t: baseTime}
	repo := NewSubmissionRepository(store, zerolog.Nop()).WithClock(clock.Now)
	return repo, store, clock
}

func TestSubmissionCreateThenGet(t *testing.T) {
	repo, _, _ := setupSubmissionRepo(t)
	ctx := context.Background()

	s := newSubmission("abc", "user_1", baseTime)
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "abc")
	if err != nil || got == nil {
		t.Fatalf("GetByID = %v, %v", got, err)
	}
	if got.Title != s.Title || got.EditCode != s.EditCode || !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing) = %v, %v", missing, err)
	}
}

func TestSubmissionListFiltersExpiredAndOwner(t *testing.T) {
	repo, store, clock := setupSubmissionRepo(t)
	ctx := context.Background()

	_ = repo.Create(ctx, newSubmission("old", "user_1", baseTime.Add(-31*24*time.Hour)))
	_ = repo.Create(ctx, newSubmission("mine", "user_1", baseTime))
	_ = repo.Create(ctx, newSubmission("theirs", "user_2", baseTime))

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(all))
	}

	mine, _ := repo.List(ctx, "user_1")
	if len(mine) != 1 || mine[0].ID != "mine" {
		t.Fatalf("List(user_1) = %+v", mine)
	}

	// expired rows stay in storage
	raw, _, _ := store.Get(ctx, SubmissionsKey)
	var stored []models.Submission
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d rows, want 3", len(stored))
	}

	// exactly at expiresAt the row is no longer active
	clock.t = baseTime.Add(30 * 24 * time.Hour)
	all, _ = repo.List(ctx, "")
	if len(all) != 0 {
		t.Fatalf("List() at expiry returned %d rows", len(all))
	}
}

func TestSubmissionUpdate(t *testing.T) {
	repo, store, _ := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newSubmission("abc", "", baseTime))

	before, _, _ := store.Get(ctx, SubmissionsKey)
	title := "Autre"
	ok, err := repo.Update(ctx, "missing", models.SubmissionUpdate{Title: &title})
	if err != nil || ok {
		t.Fatalf("Update(missing) = %v, %v", ok, err)
	}
	after, _, _ := store.Get(ctx, SubmissionsKey)
	if !bytes.Equal(before, after) {
		t.Fatal("Update on a missing id rewrote storage")
	}

	status := models.StatusCorrected
	ok, err = repo.Update(ctx, "abc", models.SubmissionUpdate{
		Status:     &status,
		Correction: &models.Correction{Grade: "15/20", CorrectedAt: baseTime},
	})
	if err != nil || !ok {
		t.Fatalf("Update = %v, %v", ok, err)
	}
	got, _ := repo.GetByID(ctx, "abc")
	if got.Status != models.StatusCorrected || got.Correction == nil || got.Correction.Grade != "15/20" {
		t.Fatalf("unexpected submission after update: %+v", got)
	}
	if got.Title != "Devoir 1" {
		t.Fatalf("unset field changed: %q", got.Title)
	}
}

func TestSubmissionUpdateIgnoresExpired(t *testing.T) {
	repo, store, _ := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newSubmission("old", "", baseTime.Add(-40*24*time.Hour)))

	before, _, _ := store.Get(ctx, SubmissionsKey)
	title := "x"
	if ok, _ := repo.Update(ctx, "old", models.SubmissionUpdate{Title: &title}); ok {
		t.Fatal("expired submission was updated")
	}
	after, _, _ := store.Get(ctx, SubmissionsKey)
	if !bytes.Equal(before, after) {
		t.Fatal("storage rewritten for expired row")
	}
}

func TestSubmissionDeleteIsIdempotent(t *testing.T) {
	repo, _, _ := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newSubmission("a", "", baseTime))
	_ = repo.Create(ctx, newSubmission("b", "", baseTime))

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	all, _ := repo.List(ctx, "")
	if len(all) != 1 || all[0].ID != "b" {
		t.Fatalf("List after delete = %+v", all)
	}
}

func TestDeletingLastSubmissionClearsKey(t *testing.T) {
	repo, store, _ := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newSubmission("a", "", baseTime))

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, SubmissionsKey); ok {
		t.Fatal("empty collection still stored")
	}
	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 0 {
		t.Fatalf("List after clearing = %v, %v", all, err)
	}

	// the collection comes back on the next create
	if err := repo.Create(ctx, newSubmission("b", "", baseTime)); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.GetByID(ctx, "b"); got == nil {
		t.Fatal("submission missing after recreate")
	}
}

func TestVerifyEditCode(t *testing.T) {
	repo, _, clock := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = repo.Create(ctx, newSubmission("abc", "", baseTime))

	cases := []struct {
		id, code string
		want     bool
	}{
		{"abc", "ABC123", true},
		{"abc", "abc123", false},
		{"abc", "ABC124", false},
		{"abc", "", false},
		{"zzz", "ABC123", false},
	}
	for _, tc := range cases {
		got, err := repo.VerifyEditCode(ctx, tc.id, tc.code)
		if err != nil || got != tc.want {
			t.Errorf("VerifyEditCode(%q, %q) = %v, %v", tc.id, tc.code, got, err)
		}
	}

	clock.t = baseTime.Add(31 * 24 * time.Hour)
	if ok, _ := repo.VerifyEditCode(ctx, "abc", "ABC123"); ok {
		t.Fatal("expired submission verified")
	}
}

func TestCorruptStoreIsEmptyAndBackedUp(t *testing.T) {
	repo, store, _ := setupSubmissionRepo(t)
	ctx := context.Background()
	_ = store.Set(ctx, SubmissionsKey, []byte("{not json"))

	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 0 {
		t.Fatalf("List over corrupt data = %v, %v", all, err)
	}

	if err := repo.Create(ctx, newSubmission("abc", "", baseTime)); err != nil {
		t.Fatal(err)
	}
	backup, ok, _ := store.Get(ctx, SubmissionsKey+".corrupt")
	if !ok || string(backup) != "{not json" {
		t.Fatalf("backup = %q, %v", backup, ok)
	}
	got, _ := repo.GetByID(ctx, "abc")
	if got == nil {
		t.Fatal("submission not readable after overwrite")
	}
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(kvstore.NewMemoryStore(), zerolog.Nop())
	ctx := context.Background()

	cred := &models.Credential{
		User:     models.User{ID: "user_1", Email: "ada@example.com", Name: "Ada", Role: models.RoleStudent},
		Password: "hash",
	}
	if err := repo.Create(ctx, cred); err != nil {
		t.Fatal(err)
	}

	dup := *cred
	dup.ID = "user_2"
	dup.Email = "ADA@example.com"
	if err := repo.Create(ctx, &dup); !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		t.Fatalf("duplicate Create err = %v", err)
	}

	got, err := repo.GetByEmail(ctx, "Ada@Example.com")
	if err != nil || got == nil || got.ID != "user_1" {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}
	byID, _ := repo.GetByID(ctx, "user_1")
	if byID == nil || byID.Email != "ada@example.com" {
		t.Fatalf("GetByID = %+v", byID)
	}
	if exists, _ := repo.EmailExists(ctx, "bob@example.com"); exists {
		t.Fatal("unknown email reported as existing")
	}
}

func TestSessionRepository(t *testing.T) {
	clock := &fakeClock{t: baseTime}
	repo := NewSessionRepository(kvstore.NewMemoryStore(), zerolog.Nop()).WithClock(clock.Now)
	ctx := context.Background()

	s1 := &models.Session{ID: "s1", UserID: "user_1", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)}
	s2 := &models.Session{ID: "s2", UserID: "user_1", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)}
	_ = repo.Create(ctx, s1)
	_ = repo.Create(ctx, s2)

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.GetByID(ctx, "s1"); got != nil {
		t.Fatal("deleted session still found")
	}
	if got, _ := repo.GetByID(ctx, "s2"); got == nil {
		t.Fatal("other session of the same user was removed")
	}

	clock.t = baseTime.Add(2 * time.Hour)
	if got, _ := repo.GetByID(ctx, "s2"); got != nil {
		t.Fatal("expired session returned")
	}
}
