package entity

// Role is the authorization tier of a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// IsValid returns true for known roles
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleViewer
}

// Actor is the principal performing a workflow action
type Actor struct {
	ID   string
	Name string
	Role Role
}

// System is the actor used by background jobs
var System = Actor{ID: "system", Name: "scheduler", Role: RoleAdmin}

// CanPublish returns true if the actor may approve, schedule and publish posts
func (a Actor) CanPublish() bool {
	return a.Role == RoleAdmin
}

// CanCreatePosts returns true if the actor may create and edit posts
func (a Actor) CanCreatePosts() bool {
	return a.Role == RoleAdmin || a.Role == RoleEditor
}
