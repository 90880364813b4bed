package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
)

// API is a Client bound to one session. Every typed endpoint lives here.
type API struct {
	c  *Client
	ts TokenSource
}

// mutate runs a call whose only useful output is the backend message.
func (a *API) mutate(ctx context.Context, call Call) (string, error) {
	p, err := a.c.Do(ctx, a.ts, call)
	if err != nil {
		return "", err
	}
	return p.Message, nil
}

func (a *API) fetch(ctx context.Context, call Call, out any) error {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	p, err := a.c.Do(ctx, a.ts, call)
	if err != nil {
		return err
	}
	return p.Decode(out)
}

// ─────────────────────────────
// Auth
// ─────────────────────────────

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. Only admins are accepted; any
// other role yields ErrNotAdmin even though the backend issued a token.
func (a *API) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	var res domain.LoginResult
	err := a.fetch(ctx, Call{
		Endpoint: "user.login",
		Method:   http.MethodPost,
		Path:     "api/user/login",
		Body:     credentials{Email: email, Password: password},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.JWT == "" {
		return nil, &Error{Kind: KindServer, Status: http.StatusOK, Message: "login response carried no token"}
	}
	if !res.User.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return &res, nil
}

func (a *API) ForgotPassword(ctx context.Context, email string) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "user.forgot_password",
		Method:   http.MethodPost,
		Path:     "api/user/forgot-password",
		Body:     map[string]string{"email": email},
	})
}

func (a *API) ResetPassword(ctx context.Context, token, password, confirm string) (string, error) {
	if token == "" {
		return "", errors.New("reset token is required")
	}
	return a.mutate(ctx, Call{
		Endpoint: "user.reset_password",
		Method:   http.MethodPost,
		Path:     "api/user/reset-password/" + url.PathEscape(token),
		Body:     map[string]string{"password": password, "confirmPassword": confirm},
	})
}

// PasswordChange is the payload of the settings page password form.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *API) ChangePassword(ctx context.Context, in PasswordChange) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "user.update_password",
		Method:   http.MethodPut,
		Path:     "api/user/update-password",
		Body:     in,
	})
}

// ─────────────────────────────
// Dashboard
// ─────────────────────────────

func (a *API) Dashboard(ctx context.Context, period domain.Period) (*domain.DashboardSummary, error) {
	var out domain.DashboardSummary
	err := a.fetch(ctx, Call{
		Endpoint: "dashboard.admin",
		Path:     "api/dashboard/admin",
		Query:    url.Values{"filter": {string(period)}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ─────────────────────────────
// Links
// ─────────────────────────────

func (a *API) ListLinks(ctx context.Context, status domain.StatusFilter, search string) ([]domain.Link, error) {
	var out []domain.Link
	err := a.fetch(ctx, Call{
		Endpoint: "link.all",
		Path:     "api/link/all",
		Query:    url.Values{"status": {string(status)}, "search": {search}},
	}, &out)
	return out, err
}

func detailsQuery(r domain.DateRange) url.Values {
	return url.Values{"from": {r.From}, "to": {r.To}}
}

func (a *API) LinkDetails(ctx context.Context, slug string, r domain.DateRange) (*domain.LinkDetails, error) {
	var out domain.LinkDetails
	err := a.fetch(ctx, Call{
		Endpoint: "link.details",
		Path:     "api/link/details/" + url.PathEscape(slug),
		Query:    detailsQuery(r),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportLinkCSV requests the details endpoint with exportAs=csv and returns
// the raw stream. The caller must close it.
func (a *API) ExportLinkCSV(ctx context.Context, slug string, r domain.DateRange) (io.ReadCloser, string, error) {
	q := detailsQuery(r)
	q.Set("exportAs", "csv")
	return a.c.Stream(ctx, a.ts, Call{
		Endpoint: "link.export",
		Method:   http.MethodGet,
		Path:     "api/link/details/" + url.PathEscape(slug),
		Query:    q,
		Accept:   "text/csv, application/octet-stream",
	})
}

func (a *API) UpdateLink(ctx context.Context, id string, in domain.LinkUpdate) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "link.update",
		Method:   http.MethodPut,
		Path:     "api/link/update/" + url.PathEscape(id),
		Body:     in,
	})
}

func (a *API) DeleteLink(ctx context.Context, id string) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "link.delete",
		Method:   http.MethodDelete,
		Path:     "api/link/delete/" + url.PathEscape(id),
	})
}

// ─────────────────────────────
// Visits
// ─────────────────────────────

func (a *API) ListVisits(ctx context.Context, linkID string) ([]domain.Visit, error) {
	var out []domain.Visit
	err := a.fetch(ctx, Call{
		Endpoint: "visit.get",
		Path:     "api/visit/get/" + url.PathEscape(linkID),
	}, &out)
	return out, err
}

func (a *API) DeleteVisits(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("no visits selected")
	}
	return a.mutate(ctx, Call{
		Endpoint: "visit.delete",
		Method:   http.MethodPost,
		Path:     "api/visit/delete",
		Body:     map[string][]string{"visitIds": ids},
	})
}

// ─────────────────────────────
// Users
// ─────────────────────────────

func (a *API) ListUsers(ctx context.Context, search string) ([]domain.User, error) {
	var out []domain.User
	err := a.fetch(ctx, Call{
		Endpoint: "user.all",
		Path:     "api/user/all-users",
		Query:    url.Values{"search": {search}},
	}, &out)
	return out, err
}

func (a *API) UserDetails(ctx context.Context, username string) (*domain.User, error) {
	var out domain.User
	err := a.fetch(ctx, Call{
		Endpoint: "user.details",
		Path:     "api/user/details/" + url.PathEscape(username),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreateUser(ctx context.Context, in domain.UserCreate) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "user.create",
		Method:   http.MethodPost,
		Path:     "api/user/admin/create-user",
		Body:     in,
	})
}

func (a *API) UpdateUser(ctx context.Context, id string, in domain.UserUpdate) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "user.update",
		Method:   http.MethodPut,
		Path:     "api/user/admin/update/" + url.PathEscape(id),
		Body:     in,
	})
}

func (a *API) RemoveUser(ctx context.Context, id string) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "user.remove",
		Method:   http.MethodDelete,
		Path:     "api/user/admin/remove/" + url.PathEscape(id),
	})
}

func (a *API) SetUsersStatus(ctx context.Context, in domain.UsersStatus) (string, error) {
	if len(in.UserIDs) == 0 {
		return "", fmt.Errorf("no users selected")
	}
	return a.mutate(ctx, Call{
		Endpoint: "user.status",
		Method:   http.MethodPut,
		Path:     "api/user/admin/status",
		Body:     in,
	})
}

// ─────────────────────────────
// Follow-ups
// ─────────────────────────────

func (a *API) ListFollowUps(ctx context.Context, status domain.StatusFilter, slug string) ([]domain.FollowUp, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if slug != "" {
		q.Set("slug", slug)
	}
	var out []domain.FollowUp
	err := a.fetch(ctx, Call{
		Endpoint: "followup.all",
		Path:     "api/follow-up/all",
		Query:    q,
	}, &out)
	return out, err
}

func (a *API) UpdateFollowUp(ctx context.Context, id string, in domain.FollowUpUpdate) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "followup.update",
		Method:   http.MethodPut,
		Path:     "api/follow-up/update/" + url.PathEscape(id),
		Body:     in,
	})
}

func (a *API) DeleteFollowUp(ctx context.Context, id string) (string, error) {
	return a.mutate(ctx, Call{
		Endpoint: "followup.delete",
		Method:   http.MethodDelete,
		Path:     "api/follow-up/delete/" + url.PathEscape(id),
	})
}
