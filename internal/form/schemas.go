package form

import (
	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/domain"
)

var statusOptions = []Option{
	{Value: string(domain.UserActive), Label: "active"},
	{Value: string(domain.UserBlocked), Label: "blocked"},
}

var linkTypeOptions = []Option{
	{Value: "none", Label: "type_none"},
	{Value: "email", Label: "type_email"},
}

var googleLoginOptions = []Option{
	{Value: domain.GoogleLoginActive, Label: "google_active"},
	{Value: domain.GoogleLoginOptional, Label: "google_optional"},
	{Value: domain.GoogleLoginInactive, Label: "google_inactive"},
}

var Login = &Schema{Name: "login", Fields: []Field{
	{Name: "email", Label: "email", Type: Email, Required: true},
	{Name: "password", Label: "password", Type: Password, Required: true},
}}

var ForgotPassword = &Schema{Name: "forgot_password", Fields: []Field{
	{Name: "email", Label: "email", Type: Email, Required: true},
}}

var PasswordReset = &Schema{Name: "password_reset", Fields: []Field{
	{Name: "password", Label: "new_password", Type: Password, Required: true},
	{Name: "confirmPassword", Label: "confirm_password", Type: Password, Required: true, MatchField: "password"},
}}

var ChangePassword = &Schema{Name: "change_password", Fields: []Field{
	{Name: "oldPassword", Label: "old_password", Type: Password, Required: true},
	{Name: "newPassword", Label: "new_password", Type: Password, Required: true},
	{Name: "confirmPassword", Label: "confirm_password", Type: Password, Required: true, MatchField: "newPassword"},
}}

var UserCreate = &Schema{Name: "user_create", Fields: []Field{
	{Name: "username", Label: "username", Type: Text, Required: true},
	{Name: "name", Label: "full_name", Type: Text, Required: true},
	{Name: "email", Label: "email", Type: Email, Required: true},
	{Name: "password", Label: "password", Type: Password, Required: true},
	{Name: "confirmPassword", Label: "confirm_password", Type: Password, Required: true, MatchField: "password"},
	{Name: "img", Label: "profile_image", Type: File},
}}

var UserEdit = &Schema{Name: "user_edit", Fields: []Field{
	{Name: "username", Label: "username", Type: Text, ReadOnly: true},
	{Name: "name", Label: "full_name", Type: Text, Required: true},
	{Name: "email", Label: "email", Type: Email, Required: true},
	{Name: "isBlocked", Label: "blocked", Type: Bool},
	{Name: "img", Label: "profile_image", Type: File},
}}

var LinkEdit = &Schema{Name: "link_edit", Fields: []Field{
	{Name: "destinationUrl", Label: "destination_url", Type: URL, Required: true},
	{Name: "type", Label: "type", Type: Select, Options: linkTypeOptions},
	{Name: "googleLogin", Label: "google_login", Type: Select, Options: googleLoginOptions},
	{Name: "description", Label: "description", Type: Textarea},
	{Name: "isActive", Label: "active", Type: Bool},
	{Name: "image", Label: "image", Type: File},
}}

var FollowUpEdit = &Schema{Name: "followup_edit", Fields: []Field{
	{Name: "subject", Label: "subject", Type: Text, Required: true},
	{Name: "body", Label: "body", Type: Textarea},
	{Name: "destinationUrl", Label: "destination_url", Type: URL},
	{Name: "enabled", Label: "enabled", Type: Bool},
	{Name: "approved", Label: "approved", Type: Bool},
	{Name: "img", Label: "image", Type: File},
}}

var UsersStatus = &Schema{Name: "users_status", Fields: []Field{
	{Name: "status", Label: "status", Type: Select, Required: true, Options: statusOptions},
}}

// Language is the settings language switch. Options are filled from the
// loaded catalog at render time.
var Language = &Schema{Name: "language", Fields: []Field{
	{Name: "language", Label: "language", Type: Text, Required: true},
}}

// Initial values used when an edit dialog opens.

func LinkValues(l domain.Link) map[string]string {
	return map[string]string{
		"destinationUrl": l.DestinationURL,
		"type":           l.Type,
		"googleLogin":    l.GoogleLogin,
		"description":    l.Description,
		"isActive":       formatBool(l.IsActive),
		"image":          l.Image,
	}
}

func UserValues(u domain.User) map[string]string {
	return map[string]string{
		"username":  u.Username,
		"name":      u.Name,
		"email":     u.Email,
		"isBlocked": formatBool(u.IsBlocked),
		"img":       u.Img,
	}
}

func FollowUpValues(f domain.FollowUp) map[string]string {
	return map[string]string{
		"subject":        f.Subject,
		"body":           f.Body,
		"destinationUrl": f.DestinationURL,
		"enabled":        formatBool(f.Enabled),
		"approved":       formatBool(f.Approved),
		"img":            f.Img,
	}
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Payloads built from a validated state.

func (st *State) LinkUpdate() domain.LinkUpdate {
	return domain.LinkUpdate{
		DestinationURL: st.Get("destinationUrl"),
		Type:           st.Get("type"),
		Image:          st.Get("image"),
		Description:    st.Get("description"),
		IsActive:       st.Bool("isActive"),
		GoogleLogin:    st.Get("googleLogin"),
	}
}

func (st *State) UserCreate() domain.UserCreate {
	return domain.UserCreate{
		Img:             st.Get("img"),
		Name:            st.Get("name"),
		Username:        st.Get("username"),
		Email:           st.Get("email"),
		Password:        st.Get("password"),
		ConfirmPassword: st.Get("confirmPassword"),
	}
}

func (st *State) UserUpdate() domain.UserUpdate {
	return domain.UserUpdate{
		Img:       st.Get("img"),
		Name:      st.Get("name"),
		Username:  st.Get("username"),
		Email:     st.Get("email"),
		IsBlocked: st.Bool("isBlocked"),
	}
}

func (st *State) FollowUpUpdate() domain.FollowUpUpdate {
	return domain.FollowUpUpdate{
		Subject:        st.Get("subject"),
		Body:           st.Get("body"),
		Img:            st.Get("img"),
		DestinationURL: st.Get("destinationUrl"),
		Enabled:        st.Bool("enabled"),
		Approved:       st.Bool("approved"),
	}
}

func (st *State) PasswordChange() backend.PasswordChange {
	return backend.PasswordChange{
		OldPassword:     st.Get("oldPassword"),
		NewPassword:     st.Get("newPassword"),
		ConfirmPassword: st.Get("confirmPassword"),
	}
}
