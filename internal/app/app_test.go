package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"campuspass/internal/notify"
	"campuspass/internal/render"
	"campuspass/internal/session"
	"campuspass/internal/store"
	"campuspass/internal/summarize"
	"campuspass/pkg/domain"
)

type failingNotifier struct{}

func (failingNotifier) Publish(context.Context, notify.Event) error {
	return errors.New("broker down")
}

type testEnv struct {
	app      *App
	store    *store.MemoryStore
	notifier *notify.MemoryNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	r, err := render.NewRenderer(filepath.Join(base, "qr"), filepath.Join(base, "pdf"), "http://localhost:8080", nil)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	st := store.NewMemoryStore()
	nt := notify.NewMemoryNotifier()
	a, err := New(Config{
		Store:      st,
		Sessions:   session.NewJWTStore("test-secret", time.Hour),
		Summarizer: summarize.NewService(nil, 0),
		Notifier:   nt,
		Renderer:   r,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &testEnv{app: a, store: st, notifier: nt}
}

func (e *testEnv) student(t *testing.T, roll string) domain.User {
	t.Helper()
	user, _, err := e.app.SignUp("Asha Rao", roll, "s3cret-pass")
	if err != nil {
		t.Fatalf("sign up %s: %v", roll, err)
	}
	return user
}

func TestSignUpLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	user, token, err := env.app.SignUp("Asha Rao", "21CS042", "s3cret-pass")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Role != domain.RoleStudent {
		t.Fatalf("expected student role, got %q", user.Role)
	}
	got, ok := env.app.UserFromToken(token)
	if !ok || got.ID != user.ID {
		t.Fatalf("token did not resolve to the new user")
	}

	if _, _, err := env.app.SignUp("Someone Else", "21CS042", "other"); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate roll: expected ErrValidation, got %v", err)
	}
	if _, _, err := env.app.Login("21CS042", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	_, token2, err := env.app.Login("21CS042", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, ok := env.app.UserFromToken(token2); !ok {
		t.Fatalf("login token did not resolve")
	}
}

func TestSubmitCreatesPendingAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")

	req, err := env.app.Submit(context.Background(), owner, SubmitInput{
		Kind:   domain.KindOnDuty,
		Date:   "2025-04-01",
		Reason: "Attending a family function in another city for two days",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %q", req.Status)
	}
	if len(req.ID) != 8 {
		t.Fatalf("expected 8-char id, got %q", req.ID)
	}
	if strings.TrimSpace(req.Summary) == "" {
		t.Fatalf("summary must never be empty")
	}
	if n := len(strings.Fields(req.Summary)); n > 25 {
		t.Fatalf("summary too long: %d words", n)
	}

	events := env.notifier.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID != req.ID || ev.Roll != owner.Roll || ev.Name != owner.Name || ev.Summary != req.Summary {
		t.Fatalf("event does not match request: %+v", ev)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")
	ctx := context.Background()

	cases := []struct {
		name string
		in   SubmitInput
	}{
		{"unknown kind", SubmitInput{Kind: "Holiday", Date: "2025-04-01"}},
		{"missing date", SubmitInput{Kind: domain.KindOnDuty}},
		{"bad date", SubmitInput{Kind: domain.KindOnDuty, Date: "04/01/2025"}},
		{"gate pass without window", SubmitInput{Kind: domain.KindGatePass, Date: "2025-04-01"}},
		{"gate pass missing return", SubmitInput{Kind: domain.KindGatePass, Date: "2025-04-01", ExitTime: "10:00"}},
		{"window on on-duty", SubmitInput{Kind: domain.KindOnDuty, Date: "2025-04-01", ExitTime: "10:00", ReturnTime: "12:00"}},
	}
	for _, tc := range cases {
		if _, err := env.app.Submit(ctx, owner, tc.in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
	if len(env.notifier.Events()) != 0 {
		t.Fatalf("rejected submissions must not emit events")
	}
}

func TestSubmitGatePassStoresWindow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")

	req, err := env.app.Submit(context.Background(), owner, SubmitInput{
		Kind:       domain.KindGatePass,
		Date:       "2025-04-01",
		ExitTime:   "10:00",
		ReturnTime: "12:00",
		Reason:     "Need to visit the bank before it closes",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Window == nil || req.Window.ExitTime != "10:00" || req.Window.ReturnTime != "12:00" {
		t.Fatalf("gate pass window not stored: %+v", req.Window)
	}
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")
	a, err := New(Config{
		Store:      env.store,
		Sessions:   session.NewJWTStore("test-secret", time.Hour),
		Notifier:   failingNotifier{},
		Renderer:   env.app.renderer,
		Summarizer: summarize.NewService(nil, 0),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	req, err := a.Submit(context.Background(), owner, SubmitInput{
		Kind:   domain.KindLeave,
		Date:   "2025-04-02",
		Reason: "Recovering from a fever at home",
	})
	if err != nil {
		t.Fatalf("submit must not fail on notifier error: %v", err)
	}
	if _, ok, _ := env.store.GetRequest(req.ID); !ok {
		t.Fatalf("request was not persisted")
	}
}

func TestApproveDownloadVerifyFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")

	req, err := env.app.Submit(context.Background(), owner, SubmitInput{
		Kind:   domain.KindOnDuty,
		Date:   "2025-04-01",
		Reason: "Representing the college at an inter-university coding contest",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Pending: verify finds it but it is not active, download refuses.
	res, err := env.app.Verify(req.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Found || res.Active {
		t.Fatalf("pending verify: %+v", res)
	}
	if _, _, err := env.app.Download(owner, req.ID); !errors.Is(err, render.ErrNotApproved) {
		t.Fatalf("pending download: expected ErrNotApproved, got %v", err)
	}

	approved, err := env.app.Approve(req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Fatalf("expected approved, got %q", approved.Status)
	}
	// Approving again is a no-op, not an error.
	if _, err := env.app.Approve(req.ID); err != nil {
		t.Fatalf("second approve: %v", err)
	}

	path, got, err := env.app.Download(owner, req.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if got.ID != req.ID {
		t.Fatalf("download returned wrong request %q", got.ID)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil || string(head) != "%PDF-" {
		t.Fatalf("artifact is not a PDF: %q err=%v", head, err)
	}

	res, err = env.app.Verify(req.ID)
	if err != nil {
		t.Fatalf("verify approved: %v", err)
	}
	if !res.Found || !res.Active || res.Kind != string(domain.KindOnDuty) || res.Date != req.Date {
		t.Fatalf("approved verify: %+v", res)
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.app.Approve("deadbeef"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDownloadAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")
	other := env.student(t, "21CS099")

	req, err := env.app.Submit(context.Background(), owner, SubmitInput{
		Kind:   domain.KindLeave,
		Date:   "2025-04-03",
		Reason: "Attending a cousin's wedding out of town",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.app.Approve(req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, _, err := env.app.Download(other, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other student: expected ErrForbidden, got %v", err)
	}

	head := domain.User{ID: "head-1", Roll: "HOD001", Name: "Dr. Meena Iyer", Role: domain.RoleDepartmentHead}
	if err := env.store.SaveUser(head); err != nil {
		t.Fatalf("save head: %v", err)
	}
	if _, _, err := env.app.Download(head, req.ID); err != nil {
		t.Fatalf("head download: %v", err)
	}
	if _, _, err := env.app.Download(owner, "00000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestVerifyUnknownIdentifier(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.app.Verify("deadbeef")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Found || res.Active {
		t.Fatalf("unknown id must report not found: %+v", res)
	}
}

func TestListRequestsScoping(t *testing.T) {
	env := newTestEnv(t)
	owner := env.student(t, "21CS042")
	other := env.student(t, "21CS099")
	ctx := context.Background()

	if _, err := env.app.Submit(ctx, owner, SubmitInput{Kind: domain.KindOnDuty, Date: "2025-04-01", Reason: "Lab work"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.app.Submit(ctx, other, SubmitInput{Kind: domain.KindLeave, Date: "2025-04-02", Reason: "Family visit"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	mine, err := env.app.ListRequests(owner)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(mine) != 1 || mine[0].OwnerID != owner.ID {
		t.Fatalf("student list leaked other requests: %+v", mine)
	}

	head := domain.User{ID: "head-1", Roll: "HOD001", Name: "Dr. Meena Iyer", Role: domain.RoleDepartmentHead}
	all, err := env.app.ListRequests(head)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("head must see everything, got %d", len(all))
	}
}
