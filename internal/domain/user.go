package domain

import "time"

// RoleAdmin is the only role allowed to sign in to the dashboard.
const RoleAdmin = "admin"

// User is an end user of the platform.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Img       string    `json:"img,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsBlocked bool      `json:"isBlocked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Links is only filled by the user details endpoint.
	Links []Link `json:"links,omitempty"`
}

// UserRef is the embedded owner snapshot carried by links and follow-ups.
type UserRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Img      string `json:"img,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email, Img: u.Img, Role: u.Role}
}

// IsAdmin reports whether the user may use the dashboard.
func (u UserRef) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserCreate is the payload of the create-user call.
type UserCreate struct {
	Img             string `json:"img,omitempty"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UserUpdate is the payload of the update-user call. Username is read-only.
type UserUpdate struct {
	Img       string `json:"img,omitempty"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsBlocked bool   `json:"isBlocked"`
}

// UsersStatus is the payload of the bulk status change.
type UsersStatus struct {
	Status  string   `json:"status"`
	UserIDs []string `json:"userIds"`
}

// LoginResult is what the backend returns on a successful login.
type LoginResult struct {
	JWT     string  `json:"jwt"`
	Message string  `json:"message"`
	User    UserRef `json:"user"`
}
