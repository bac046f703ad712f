package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campuspass/internal/notify"
	"campuspass/internal/render"
	"campuspass/internal/session"
	"campuspass/internal/store"
	"campuspass/internal/summarize"
	"campuspass/internal/util"
	"campuspass/pkg/auth"
	"campuspass/pkg/domain"
)

// Config wires the collaborators of the lifecycle controller.
type Config struct {
	Store      store.Store
	Sessions   session.Store
	Summarizer *summarize.Service
	Notifier   notify.Notifier
	Renderer   *render.Renderer
}

// App orchestrates the request lifecycle: submit, approve, download, verify.
type App struct {
	store      store.Store
	sessions   session.Store
	summarizer *summarize.Service
	notifier   notify.Notifier
	renderer   *render.Renderer
}

// New validates the wiring. A nil summarizer service is replaced with one
// that always falls back, so a failed model init degrades instead of
// crashing; a nil notifier is replaced with an in-process one.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer required")
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = summarize.NewService(nil, 0)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewMemoryNotifier()
	}
	return &App{
		store:      cfg.Store,
		sessions:   cfg.Sessions,
		summarizer: summarizer,
		notifier:   notifier,
		renderer:   cfg.Renderer,
	}, nil
}

// SignUp registers a student account and issues a session token.
func (a *App) SignUp(name, roll, password string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	roll = strings.TrimSpace(roll)
	if name == "" || roll == "" || password == "" {
		return domain.User{}, "", fmt.Errorf("%w: name, roll and password are required", ErrValidation)
	}
	taken, err := a.store.HasRoll(roll)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check roll: %w", err)
	}
	if taken {
		return domain.User{}, "", fmt.Errorf("%w: roll number already registered", ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Roll:         roll,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.New(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(roll, password string) (domain.User, string, error) {
	user, ok, err := a.store.GetUserByRoll(strings.TrimSpace(roll))
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.New(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.UserID(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.Delete(token)
}

// SubmitInput carries one submission from the HTTP layer.
type SubmitInput struct {
	Kind       domain.RequestKind
	Date       string // YYYY-MM-DD
	ExitTime   string // gate pass only
	ReturnTime string // gate pass only
	Reason     string
}

// Submit validates the input, condenses the justification, persists the
// request as pending and announces it. A notification failure is logged and
// never fails the submission; no event is emitted when persistence fails.
func (a *App) Submit(ctx context.Context, owner domain.User, in SubmitInput) (domain.Request, error) {
	if !domain.KnownKind(in.Kind) {
		return domain.Request{}, fmt.Errorf("%w: unknown request kind %q", ErrValidation, in.Kind)
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(in.Date)); err != nil {
		return domain.Request{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	exit := strings.TrimSpace(in.ExitTime)
	ret := strings.TrimSpace(in.ReturnTime)
	var window *domain.TimeWindow
	switch {
	case in.Kind == domain.KindGatePass:
		if exit == "" || ret == "" {
			return domain.Request{}, fmt.Errorf("%w: gate pass requires exit and return times", ErrValidation)
		}
		window = &domain.TimeWindow{ExitTime: exit, ReturnTime: ret}
	case exit != "" || ret != "":
		return domain.Request{}, fmt.Errorf("%w: time window is only valid for gate passes", ErrValidation)
	}

	reason := strings.TrimSpace(in.Reason)
	summary := a.summarizer.Summarize(ctx, reason)

	created, err := a.store.CreateRequest(domain.Request{
		OwnerID: owner.ID,
		Kind:    in.Kind,
		Date:    strings.TrimSpace(in.Date),
		Window:  window,
		Reason:  reason,
		Summary: summary,
	})
	if err != nil {
		return domain.Request{}, fmt.Errorf("create request: %w", err)
	}

	if err := a.notifier.Publish(ctx, notify.Event{
		ID:      created.ID,
		Name:    owner.Name,
		Roll:    owner.Roll,
		Summary: created.Summary,
	}); err != nil {
		slog.Warn("submission notification failed", "request_id", created.ID, "err", err)
	}
	return created, nil
}

// ListRequests returns the caller's own requests, or everything with pending
// first for the department head.
func (a *App) ListRequests(user domain.User) ([]domain.Request, error) {
	if user.Role == domain.RoleDepartmentHead {
		return a.store.ListAll()
	}
	return a.store.ListByOwner(user.ID)
}

// Approve transitions a request to approved. Rendering is deliberately
// deferred to the first download so the approval action stays fast and
// never-downloaded requests cost nothing.
func (a *App) Approve(id string) (domain.Request, error) {
	return a.store.Approve(id)
}

// Download returns the artifact path for an approved request, rendering it on
// first access. Students may only download their own documents.
func (a *App) Download(user domain.User, id string) (string, domain.Request, error) {
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return "", domain.Request{}, fmt.Errorf("get request: %w", err)
	}
	if !ok {
		return "", domain.Request{}, store.ErrNotFound
	}
	if user.Role != domain.RoleDepartmentHead && req.OwnerID != user.ID {
		return "", domain.Request{}, ErrForbidden
	}
	owner, found, err := a.store.GetUserByID(req.OwnerID)
	if err != nil {
		return "", domain.Request{}, fmt.Errorf("get owner: %w", err)
	}
	if !found {
		return "", domain.Request{}, fmt.Errorf("request %s owner missing", id)
	}
	path, err := a.renderer.RenderIfAbsent(req, owner)
	if err != nil {
		return "", domain.Request{}, err
	}
	return path, req, nil
}

// VerifyResult is the public view of a request's validity. It exposes only
// what the rendered document itself shows.
type VerifyResult struct {
	Found   bool   `json:"found"`
	Active  bool   `json:"active"`
	Kind    string `json:"kind,omitempty"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Verify reports whether an identifier exists and whether its document is
// active. Pending requests are found but inactive, never an error.
func (a *App) Verify(id string) (VerifyResult, error) {
	req, ok, err := a.store.GetRequest(id)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("get request: %w", err)
	}
	if !ok {
		return VerifyResult{}, nil
	}
	return VerifyResult{
		Found:   true,
		Active:  req.Status == domain.StatusApproved,
		Kind:    string(req.Kind),
		Date:    req.Date,
		Summary: req.Summary,
	}, nil
}
