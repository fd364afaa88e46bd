package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/app/repositories"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/auth"
	"github.com/yigit/submity/internal/pkg/codegen"
	"github.com/yigit/submity/internal/pkg/filestorage"
	"github.com/yigit/submity/internal/pkg/kvstore"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

type testEnv struct {
	clock       *testClock
	repos       *repositories.Repositories
	submissions *SubmissionService
	auth        *AuthService
	uploads     string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{t: time.Now()}
	repos := repositories.NewRepositories(kvstore.NewMemoryStore(), zerolog.Nop())
	repos.SubmissionRepository.WithClock(clock.Now)
	repos.SessionRepository.WithClock(clock.Now)

	uploads := t.TempDir()
	files, err := filestorage.NewLocalStorage(uploads, "http://localhost:8080/uploads")
	if err != nil {
		t.Fatal(err)
	}

	submissions := NewSubmissionService(repos.SubmissionRepository, files, SubmissionConfig{
		PublicBaseURL: "http://localhost:8080/",
		MaxUploadSize: 1 << 10,
	}, zerolog.Nop()).WithClock(clock.Now)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "submity.test",
	})
	authService := NewAuthService(repos.UserRepository, repos.SessionRepository, jwtService, zerolog.Nop())

	return &testEnv{
		clock:       clock,
		repos:       repos,
		submissions: submissions,
		auth:        authService,
		uploads:     uploads,
	}
}

func TestSubmitAndGradeScenario(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	sub, err := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "  Ada ",
		Title:       " Devoir 1 ",
		ContentType: models.ContentTypeText,
		Content:     "Ma réponse",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Title != "Devoir 1" || sub.StudentName != "Ada" {
		t.Fatalf("fields not trimmed: %q %q", sub.Title, sub.StudentName)
	}
	if sub.Status != models.StatusPending || !codegen.IsEditCode(sub.EditCode) {
		t.Fatalf("unexpected new submission %+v", sub)
	}
	if sub.ConsultationURL != "http://localhost:8080/view/"+sub.ID {
		t.Fatalf("ConsultationURL = %q", sub.ConsultationURL)
	}
	if got := sub.ExpiresAt.Sub(sub.CreatedAt); got != 30*24*time.Hour {
		t.Fatalf("retention = %v", got)
	}

	// a teacher types the code in lower case with stray spaces
	ok, err := env.submissions.VerifyEditCode(ctx, sub.ID, " "+strings.ToLower(sub.EditCode)+" ")
	if err != nil || !ok {
		t.Fatalf("VerifyEditCode = %v, %v", ok, err)
	}

	graded, err := env.submissions.GradeSubmission(ctx, sub.ID, sub.EditCode, " 15/20 ", " Bon travail ")
	if err != nil {
		t.Fatalf("GradeSubmission: %v", err)
	}
	if graded.Status != models.StatusCorrected || graded.Correction == nil {
		t.Fatalf("not corrected: %+v", graded)
	}
	if graded.Correction.Grade != "15/20" || graded.Correction.Appreciation != "Bon travail" {
		t.Fatalf("unexpected correction %+v", graded.Correction)
	}

	// re-correction overwrites
	regraded, err := env.submissions.GradeSubmission(ctx, sub.ID, sub.EditCode, "16/20", "")
	if err != nil || regraded.Correction.Grade != "16/20" || regraded.Status != models.StatusCorrected {
		t.Fatalf("re-correction = %+v, %v", regraded, err)
	}
}

func TestGradeRequiresGradeAndCode(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	sub, _ := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada", Title: "Devoir 1", ContentType: models.ContentTypeText, Content: "x",
	})

	if _, err := env.submissions.GradeSubmission(ctx, sub.ID, sub.EditCode, "   ", "bien"); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("blank grade err = %v", err)
	}
	wrong := "ZZZZZZ"
	if wrong == sub.EditCode {
		wrong = "YYYYYY"
	}
	if _, err := env.submissions.GradeSubmission(ctx, sub.ID, wrong, "15/20", ""); !errors.Is(err, apperrors.ErrInvalidEditCode) {
		t.Fatalf("wrong code err = %v", err)
	}
	if _, err := env.submissions.GradeSubmission(ctx, "missing", sub.EditCode, "15/20", ""); !errors.Is(err, apperrors.ErrSubmissionNotFound) {
		t.Fatalf("missing id err = %v", err)
	}

	got, _ := env.submissions.GetSubmission(ctx, sub.ID)
	if got.Status != models.StatusPending || got.Correction != nil {
		t.Fatalf("failed grading changed the submission: %+v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	cases := []CreateSubmissionInput{
		{StudentName: "Ada", Title: "  ", ContentType: models.ContentTypeText, Content: "x"},
		{StudentName: "", Title: "Devoir", ContentType: models.ContentTypeText, Content: "x"},
		{StudentName: "Ada", Title: "Devoir", ContentType: models.ContentTypeText, Content: "  "},
		{StudentName: "Ada", Title: "Devoir", ContentType: "video"},
		{StudentName: "Ada", Title: "Devoir", ContentType: models.ContentTypeFile},
	}
	for i, in := range cases {
		if _, err := env.submissions.Submit(ctx, in); !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("case %d: err = %v, want validation error", i, err)
		}
	}
}

func TestSubmitFieldLengthMessages(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       strings.Repeat("é", 250),
		ContentType: models.ContentTypeText,
		Content:     "x",
	})
	if !errors.Is(err, apperrors.ErrValidationFailed) || err.Error() != "title must be at most 200 characters" {
		t.Fatalf("long title: %v", err)
	}

	_, err = env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: strings.Repeat("a", 121),
		Title:       "Devoir 1",
		ContentType: models.ContentTypeText,
		Content:     "x",
	})
	if !errors.Is(err, apperrors.ErrValidationFailed) || err.Error() != "studentName must be at most 120 characters" {
		t.Fatalf("long name: %v", err)
	}

	_, err = env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       "   ",
		ContentType: models.ContentTypeText,
		Content:     "x",
	})
	if err == nil || err.Error() != "title is required" {
		t.Fatalf("blank title: %v", err)
	}

	// exactly at the limit is accepted
	if _, err := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       strings.Repeat("é", 200),
		ContentType: models.ContentTypeText,
		Content:     "x",
	}); err != nil {
		t.Fatalf("200-rune title rejected: %v", err)
	}
}

func TestSubmitFile(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pdf := "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"
	sub, err := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeFile,
		File:        &UploadedFile{Name: "devoir.PDF", Size: int64(len(pdf)), Reader: strings.NewReader(pdf)},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.FileType != models.FileTypePDF || sub.Content != "[Fichier: devoir.PDF]" || sub.FileName != "devoir.PDF" {
		t.Fatalf("unexpected file submission %+v", sub)
	}
	if !strings.HasPrefix(sub.FileURL, "http://localhost:8080/uploads/") {
		t.Fatalf("FileURL = %q", sub.FileURL)
	}

	_, err = env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeFile,
		File:        &UploadedFile{Name: "notes.pdf", Size: 11, Reader: strings.NewReader("plain text!")},
	})
	if !errors.Is(err, apperrors.ErrUnsupportedFileType) {
		t.Fatalf("text upload err = %v", err)
	}

	big := pdf + strings.Repeat("x", 2<<10)
	_, err = env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeFile,
		File:        &UploadedFile{Name: "big.pdf", Size: -1, Reader: strings.NewReader(big)},
	})
	if !errors.Is(err, apperrors.ErrFileTooLarge) {
		t.Fatalf("oversized upload err = %v", err)
	}
}

func TestFileTypeFromName(t *testing.T) {
	if FileTypeFromName("a.PDF") != models.FileTypePDF {
		t.Error("a.PDF should be pdf")
	}
	if FileTypeFromName("a.docx") != models.FileTypeDOCX {
		t.Error("a.docx should be docx")
	}
}

func TestExpiredSubmissionIsNotFound(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	sub, _ := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada", Title: "Devoir 1", ContentType: models.ContentTypeText, Content: "x",
	})

	env.clock.t = env.clock.t.Add(31 * 24 * time.Hour)
	if _, err := env.submissions.GetSubmission(ctx, sub.ID); !errors.Is(err, apperrors.ErrSubmissionNotFound) {
		t.Fatalf("GetSubmission after expiry err = %v", err)
	}
	if ok, _ := env.submissions.VerifyEditCode(ctx, sub.ID, sub.EditCode); ok {
		t.Fatal("expired submission verified")
	}
}

func TestListAndDeleteByOwner(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.clock.t = env.clock.t.Add(time.Minute)
		_, err := env.submissions.Submit(ctx, CreateSubmissionInput{
			StudentID: "user_1", StudentName: "Ada", Title: "Devoir", ContentType: models.ContentTypeText, Content: "x",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	other, _ := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentID: "user_2", StudentName: "Bob", Title: "Devoir", ContentType: models.ContentTypeText, Content: "y",
	})

	page, info, err := env.submissions.ListByOwner(ctx, "user_1", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || info.TotalItems != 3 || info.TotalPages != 2 {
		t.Fatalf("page = %d items, info %+v", len(page), info)
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Fatal("list is not newest first")
	}

	if err := env.submissions.DeleteSubmission(ctx, other.ID, "user_1"); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("deleting someone else's work err = %v", err)
	}
	if err := env.submissions.DeleteSubmission(ctx, page[0].ID, "user_1"); err != nil {
		t.Fatal(err)
	}
	_, info, _ = env.submissions.ListByOwner(ctx, "user_1", 1, 10)
	if info.TotalItems != 2 {
		t.Fatalf("TotalItems after delete = %d", info.TotalItems)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, &dto.RegisterRequest{Email: "Ada@Example.com", Password: "secret1", Name: "Ada"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "ada@example.com" || reg.User.Role != models.RoleStudent {
		t.Fatalf("unexpected user %+v", reg.User)
	}

	stored, _ := env.repos.UserRepository.GetByID(ctx, reg.User.ID)
	if stored == nil || stored.Password == "secret1" {
		t.Fatal("password not hashed")
	}

	if _, err := env.auth.Register(ctx, &dto.RegisterRequest{Email: "ADA@example.COM", Password: "secret1", Name: "Ada"}); !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		t.Fatalf("duplicate register err = %v", err)
	}

	login, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login user id %q, registered %q", login.User.ID, reg.User.ID)
	}

	if _, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "bob@example.com", Password: "secret1"}); !errors.Is(err, apperrors.ErrAccountNotFound) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := env.auth.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "wrong!!"}); !errors.Is(err, apperrors.ErrIncorrectPassword) {
		t.Fatalf("wrong password err = %v", err)
	}

	session, err := env.auth.Authenticate(ctx, login.Token.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	me, err := env.auth.CurrentUser(ctx, session.ID)
	if err != nil || me.ID != reg.User.ID {
		t.Fatalf("CurrentUser = %+v, %v", me, err)
	}

	if err := env.auth.Logout(ctx, session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.Authenticate(ctx, login.Token.AccessToken); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Fatalf("Authenticate after logout err = %v", err)
	}
	// the registration session is untouched
	if _, err := env.auth.Authenticate(ctx, reg.Token.AccessToken); err != nil {
		t.Fatalf("other session closed by logout: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		req  dto.RegisterRequest
		want error
	}{
		{dto.RegisterRequest{Email: "ada@example.com", Password: "12345", Name: "Ada"}, apperrors.ErrInvalidPassword},
		{dto.RegisterRequest{Email: "not-an-email", Password: "123456", Name: "Ada"}, apperrors.ErrInvalidEmail},
		{dto.RegisterRequest{Email: "ada@example.com", Password: "123456", Name: " "}, apperrors.ErrValidationFailed},
	}
	for _, tc := range cases {
		if _, err := env.auth.Register(ctx, &tc.req); !errors.Is(err, tc.want) {
			t.Errorf("Register(%+v) err = %v, want %v", tc.req, err, tc.want)
		}
	}
}

func TestEnsureAccount(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.auth.EnsureAccount(ctx, "demo@submity.app", "demo123", "Demo")
	if err != nil || !created {
		t.Fatalf("first EnsureAccount = %v, %v", created, err)
	}
	created, err = env.auth.EnsureAccount(ctx, "DEMO@submity.app", "demo123", "Demo")
	if err != nil || created {
		t.Fatalf("second EnsureAccount = %v, %v", created, err)
	}
}

// countingStore records reads so a test can tell whether storage was consulted
type countingStore struct {
	kvstore.Store
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets++
	return s.Store.Get(ctx, key)
}

func TestVerifyEditCodeRejectsMalformedCodes(t *testing.T) {
	store := &countingStore{Store: kvstore.NewMemoryStore()}
	repos := repositories.NewRepositories(store, zerolog.Nop())
	files, err := filestorage.NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewSubmissionService(repos.SubmissionRepository, files, SubmissionConfig{PublicBaseURL: "http://localhost:8080"}, zerolog.Nop())
	ctx := context.Background()

	sub, err := svc.Submit(ctx, CreateSubmissionInput{
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeText,
		Content:     "Ma réponse",
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, code := range []string{"ABC", "ABCDEFG", "AB-12!", "ÉÉÉ"} {
		before := store.gets
		ok, err := svc.VerifyEditCode(ctx, sub.ID, code)
		if ok || err != nil {
			t.Errorf("VerifyEditCode(%q) = %v, %v", code, ok, err)
		}
		if store.gets != before {
			t.Errorf("VerifyEditCode(%q) read storage", code)
		}
	}

	if _, err := svc.GradeSubmission(ctx, sub.ID, "AB-12!", "15/20", ""); !errors.Is(err, apperrors.ErrInvalidEditCode) {
		t.Fatalf("grading with malformed code: %v", err)
	}
}

type recordingNotifier struct {
	corrected []string
	deleted   []string
}

func (n *recordingNotifier) SubmissionCorrected(s *models.Submission) {
	n.corrected = append(n.corrected, s.ID+"|"+s.Correction.Grade)
}

func (n *recordingNotifier) SubmissionDeleted(id string) {
	n.deleted = append(n.deleted, id)
}

func TestNotifierReceivesGradingAndDeletion(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	env.submissions.WithNotifier(notifier)

	sub, err := env.submissions.Submit(ctx, CreateSubmissionInput{
		StudentID:   "user_1",
		StudentName: "Ada",
		Title:       "Devoir 1",
		ContentType: models.ContentTypeText,
		Content:     "Ma réponse",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.submissions.GradeSubmission(ctx, sub.ID, "WRONG1", "12/20", ""); err == nil {
		t.Fatal("expected invalid edit code")
	}
	if len(notifier.corrected) != 0 {
		t.Fatalf("rejected grading was notified: %v", notifier.corrected)
	}

	if _, err := env.submissions.GradeSubmission(ctx, sub.ID, sub.EditCode, "15/20", ""); err != nil {
		t.Fatal(err)
	}
	if len(notifier.corrected) != 1 || notifier.corrected[0] != sub.ID+"|15/20" {
		t.Fatalf("corrected events = %v", notifier.corrected)
	}

	if err := env.submissions.DeleteSubmission(ctx, sub.ID, "user_1"); err != nil {
		t.Fatal(err)
	}
	if len(notifier.deleted) != 1 || notifier.deleted[0] != sub.ID {
		t.Fatalf("deleted events = %v", notifier.deleted)
	}
}
