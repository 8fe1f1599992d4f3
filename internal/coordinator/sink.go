package coordinator

import "github.com/authgate-dev/authgate/internal/models"

// UserSink receives user-state changes. It stands in for whatever
// global state propagation the embedding application uses.
type UserSink interface {
	// PublishUser replaces the currently published user.
	PublishUser(user *models.User)
	// ClearUser marks the application as having no signed-in user.
	ClearUser()
}

// NopSink discards all user-state changes.
type NopSink struct{}

func (NopSink) PublishUser(*models.User) {}
func (NopSink) ClearUser()               {}
