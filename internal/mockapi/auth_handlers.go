package mockapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/authgate-dev/authgate/internal/models"
)

const bearerPrefix = "Bearer "

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest represents a registration request
type SignUpRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
}

// AuthResponse is the body of successful sign-in/sign-up responses
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

func (s *Server) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account Account
	if err := s.db.Where("email = ?", req.Email).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := VerifyPassword(req.Password, account.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := s.tokens.Generate(&account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("account_id", account.ID).Str("email", account.Email).Msg("Account signed in")

	c.JSON(http.StatusOK, AuthResponse{User: account.ToUser(), AccessToken: token})
}

func (s *Server) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := s.db.Model(&Account{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check for existing account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	account := Account{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Role:         "admin",
	}
	if err := s.db.Create(&account).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	token, err := s.tokens.Generate(&account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("account_id", account.ID).Str("email", account.Email).Msg("Account created")

	c.JSON(http.StatusOK, AuthResponse{User: account.ToUser(), AccessToken: token})
}

// authRequired validates the bearer token, loads the account into the
// context, and rotates tokens nearing expiry via the response header.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed authorization header"})
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := s.tokens.Validate(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		var account Account
		if err := s.db.Where("id = ?", claims.UserID).First(&account).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			c.Abort()
			return
		}

		if s.tokens.ShouldRotate(claims) {
			if fresh, err := s.tokens.Generate(&account); err == nil {
				c.Header("New-Access-Token", fresh)
			}
		}

		c.Set("account", &account)
		c.Next()
	}
}

func currentAccount(c *gin.Context) (*Account, bool) {
	v, exists := c.Get("account")
	if !exists {
		return nil, false
	}
	account, ok := v.(*Account)
	return account, ok
}

func (s *Server) getUser(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, account.ToUser())
}

func (s *Server) updateUser(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var partial models.User
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account.ApplyUpdate(&partial)
	if err := s.db.Save(account).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
		return
	}

	c.JSON(http.StatusOK, account.ToUser())
}

func (s *Server) refresh(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	token, err := s.tokens.Generate(account)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.Header("New-Access-Token", token)
	c.Status(http.StatusOK)
}
