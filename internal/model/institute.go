package model

// LoginRequest is the login form. Fields are not marked required so that a
// missing value fails the same way as a wrong one.
type LoginRequest struct {
	LoginBy  string `form:"login_by" json:"login_by" binding:"max=64"`
	Password string `form:"password" json:"password" binding:"max=128"`
	Captcha  string `form:"captcha" json:"captcha" binding:"max=16"`
}

// AddInstituteRequest is the admin form for registering an institute.
type AddInstituteRequest struct {
	InstituteName string `form:"institute_name" json:"institute_name" binding:"max=200"`
}

// InstituteRequest names an existing institute for select/remove.
type InstituteRequest struct {
	Institute string `form:"institute" json:"institute" binding:"max=200"`
}

// PageContext is attached to every view.
type PageContext struct {
	CurrentYear       int               `json:"current_year"`
	IsAdmin           bool              `json:"is_admin"`
	Role              string            `json:"role,omitempty"`
	SelectedInstitute string            `json:"selected_institute,omitempty"`
	Institutes        []string          `json:"institutes"`
	RoleDisplay       map[string]string `json:"role_display"`
}

// LoginView is the login page model.
type LoginView struct {
	PageContext
	Captcha string   `json:"captcha"`
	Message string   `json:"message,omitempty"`
	Roles   []string `json:"roles"`
}

// InstituteListView backs the admin and dashboard pages.
type InstituteListView struct {
	PageContext
	Message string `json:"message,omitempty"`
}

// LoginOutcome is returned after a successful login.
type LoginOutcome struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// InstitutesSnapshot is broadcast whenever the registry changes.
// Origin identifies the publishing process.
type InstitutesSnapshot struct {
	Institutes []string `json:"institutes"`
	Origin     string   `json:"origin,omitempty"`
}
