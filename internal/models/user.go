package models

// User is an account allowed to sign in. Only admins may edit the catalog.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
}
