package mockapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// challengeSession is a pending NEW_PASSWORD_REQUIRED continuation.
type challengeSession struct {
	accountID string
	createdAt time.Time
}

const challengeTTL = 5 * time.Minute

type challengeStore struct {
	mu       sync.Mutex
	sessions map[string]challengeSession
}

func newChallengeStore() *challengeStore {
	return &challengeStore{sessions: make(map[string]challengeSession)}
}

func (cs *challengeStore) create(accountID string) string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	id := ulid.Make().String()
	cs.sessions[id] = challengeSession{accountID: accountID, createdAt: time.Now()}
	return id
}

func (cs *challengeStore) consume(id string) (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	session, ok := cs.sessions[id]
	if !ok || time.Since(session.createdAt) > challengeTTL {
		delete(cs.sessions, id)
		return "", false
	}
	delete(cs.sessions, id)
	return session.accountID, true
}

// InitiateRequest starts the identity-provider handshake
type InitiateRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChallengeRequest answers a NEW_PASSWORD_REQUIRED challenge
type ChallengeRequest struct {
	Session        string            `json:"session" binding:"required"`
	Username       string            `json:"username" binding:"required"`
	NewPassword    string            `json:"new_password" binding:"required,min=6"`
	UserAttributes map[string]string `json:"user_attributes"`
}

func (s *Server) idpInitiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account Account
	if err := s.db.Where("email = ?", req.Username).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := VerifyPassword(req.Password, account.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}

	if account.RequiresNewPassword {
		c.JSON(http.StatusOK, gin.H{
			"challenge": "NEW_PASSWORD_REQUIRED",
			"session":   s.challenges.create(account.ID),
			"user_attributes": map[string]string{
				"email":          account.Email,
				"email_verified": "true",
				"name":           account.DisplayName,
			},
			"required_attributes": []string{},
		})
		return
	}

	idToken, err := s.tokens.GenerateIdentityToken(&account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate identity token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("account_id", account.ID).Msg("Identity-provider sign-in")

	c.JSON(http.StatusOK, gin.H{"id_token": idToken})
}

func (s *Server) idpChallenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The provider refuses echoed-back immutable attributes.
	if _, ok := req.UserAttributes["email"]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attribute email may not be modified"})
		return
	}
	if _, ok := req.UserAttributes["email_verified"]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attribute email_verified may not be modified"})
		return
	}

	accountID, ok := s.challenges.consume(req.Session)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired challenge session"})
		return
	}

	var account Account
	if err := s.db.Where("id = ?", accountID).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
		return
	}

	passwordHash, err := HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	account.PasswordHash = passwordHash
	account.RequiresNewPassword = false
	if err := s.db.Save(&account).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to save account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	idToken, err := s.tokens.GenerateIdentityToken(&account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate identity token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("account_id", account.ID).Msg("Password challenge completed")

	c.JSON(http.StatusOK, gin.H{"id_token": idToken})
}
