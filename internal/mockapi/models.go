package mockapi

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/authgate-dev/authgate/internal/models"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Account is a stored user record. Shortcuts and Settings are kept as
// JSON text columns; sqlite has no native structured type for them.
type Account struct {
	BaseModel
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role" gorm:"not null;default:admin"`

	// RequiresNewPassword forces the identity-provider handshake into
	// the NEW_PASSWORD_REQUIRED branch until the password is changed.
	RequiresNewPassword bool `json:"requires_new_password" gorm:"not null;default:false"`

	ShortcutsJSON string `json:"-" gorm:"column:shortcuts"`
	SettingsJSON  string `json:"-" gorm:"column:settings"`
}

// AutoMigrate runs the schema migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}

// ToUser converts the stored account to the normalized user model the
// auth endpoints return.
func (a *Account) ToUser() *models.User {
	user := &models.User{
		UID:  a.ID,
		Role: a.Role,
		Data: models.UserData{
			DisplayName: a.DisplayName,
			Email:       a.Email,
			Shortcuts:   []models.Shortcut{},
			Settings:    map[string]any{},
		},
	}
	if a.ShortcutsJSON != "" {
		_ = json.Unmarshal([]byte(a.ShortcutsJSON), &user.Data.Shortcuts)
	}
	if a.SettingsJSON != "" {
		_ = json.Unmarshal([]byte(a.SettingsJSON), &user.Data.Settings)
	}
	return user
}

// ApplyUpdate merges a partial user representation into the account.
// Zero-valued fields in the partial are left unchanged.
func (a *Account) ApplyUpdate(partial *models.User) {
	if partial.Data.DisplayName != "" {
		a.DisplayName = partial.Data.DisplayName
	}
	if partial.Data.Email != "" {
		a.Email = partial.Data.Email
	}
	if partial.Data.Shortcuts != nil {
		if data, err := json.Marshal(partial.Data.Shortcuts); err == nil {
			a.ShortcutsJSON = string(data)
		}
	}
	if partial.Data.Settings != nil {
		if data, err := json.Marshal(partial.Data.Settings); err == nil {
			a.SettingsJSON = string(data)
		}
	}
}
