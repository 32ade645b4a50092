package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/quickcred/quickcred/internal/auth"
	"github.com/quickcred/quickcred/internal/models"
)

const (
	// SessionCookieName is the cookie carrying the signed session token
	SessionCookieName = "quickcred_session"

	codeAuthRequired   = "AUTH_REQUIRED"
	codeSessionExpired = "SESSION_EXPIRED"
)

var (
	ErrMissingSession = errors.New("missing session cookie")
	ErrUserNotFound   = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData, user *models.User) {
	c.Set("session", sessionData)
	c.Set("user", user)
}

// GetSessionData returns the session attached by loginRequired
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// currentUser returns the user attached by loginRequired
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// respondUnauthorized answers 401 with a machine readable code the client
// uses to decide whether to leave the page
func respondUnauthorized(c *gin.Context, log zerolog.Logger, err error, code string) {
	message := "Not logged in"
	if code == codeSessionExpired {
		message = "Session expired"
	}

	log.Debug().Err(err).Str("code", code).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(http.StatusUnauthorized, gin.H{"error": message, "code": code})
	c.Abort()
}

// loginRequired resolves the session cookie to a live session and its user
func (s *Server) loginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			respondUnauthorized(c, s.logger, ErrMissingSession, codeAuthRequired)
			return
		}

		claims, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.clearSessionCookie(c)
			if errors.Is(err, auth.ErrTokenExpired) {
				respondUnauthorized(c, s.logger, err, codeSessionExpired)
				return
			}
			respondUnauthorized(c, s.logger, err, codeAuthRequired)
			return
		}

		session, err := s.sessions.Lookup(c.Request.Context(), claims.SessionID)
		switch {
		case errors.Is(err, errSessionExpired):
			s.clearSessionCookie(c)
			respondUnauthorized(c, s.logger, err, codeSessionExpired)
			return
		case errors.Is(err, errSessionNotFound):
			s.clearSessionCookie(c)
			respondUnauthorized(c, s.logger, err, codeAuthRequired)
			return
		case err != nil:
			respondWithError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
			return
		}

		// Verify user exists in database
		var user models.User
		if err := models.FindByID(s.db.WithContext(c.Request.Context()), session.UserID, &user); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.clearSessionCookie(c)
				respondUnauthorized(c, s.logger, ErrUserNotFound, codeAuthRequired)
				return
			}
			respondWithError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
			return
		}

		setSession(c, &auth.SessionData{
			SessionID: session.ID,
			UserID:    user.ID,
			ExpiresAt: session.ExpiresAt,
		}, &user)

		c.Next()
	}
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(s.config.Session.TTL.Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
}
