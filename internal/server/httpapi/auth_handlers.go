package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/metrics"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/dmitrijs2005/trainerauth/internal/server/services"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	Token     string      `json:"token"`
	Role      models.Role `json:"role"`
	ExpiresIn int64       `json:"expiresIn"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      userRef     `json:"user"`
}

type userRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func newAuthResponse(r *services.AuthResult) authResponse {
	return authResponse{
		Token:     r.Token,
		Role:      r.Role,
		ExpiresIn: r.ExpiresIn,
		ExpiresAt: r.ExpiresAt,
		User:      userRef{ID: r.AccountID, Username: r.Username},
	}
}

func origin(c *gin.Context) models.Origin {
	return models.Origin{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	res, err := s.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(res))
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	res, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password, origin(c))
	s.metrics.LoginAttempts.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(res))
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrAccountLocked):
		return metrics.OutcomeLocked
	case errors.Is(err, common.ErrInvalidCredentials):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// forgotPassword answers with the same acknowledgement whether or not the
// address belongs to an account.
func (s *Server) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	if err := s.resets.RequestReset(c.Request.Context(), req.Email, origin(c)); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: services.ResetAck})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	err := s.resets.Redeem(c.Request.Context(), req.Email, req.Token, req.NewPassword, origin(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password has been reset"})
}

func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	sess := currentSession(c)
	err := s.accounts.ChangePassword(c.Request.Context(), sess.AccountID, req.CurrentPassword, req.NewPassword, origin(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password changed"})
}

func (s *Server) me(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"id":        sess.AccountID,
		"role":      sess.Role,
		"expiresAt": sess.ExpiresAt,
	})
}
