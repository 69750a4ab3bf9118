package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

const maxActivityLimit = 100

type accountView struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	CreatedAt      time.Time   `json:"createdAt"`
	FailedAttempts int         `json:"failedAttempts"`
	LockedUntil    *time.Time  `json:"lockedUntil,omitempty"`
}

// newAccountView drops credential material; a lockout that already
// expired is not reported.
func newAccountView(a *models.Account, now time.Time) accountView {
	v := accountView{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		Role:           a.Role,
		CreatedAt:      a.CreatedAt,
		FailedAttempts: a.FailedAttempts,
	}
	if a.LockoutUntil != nil && a.LockoutUntil.After(now) {
		t := *a.LockoutUntil
		v.LockedUntil = &t
	}
	return v
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return audit.DefaultRecentLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, common.NewValidationError("limit", "Limit must be a positive integer")
	}
	return min(n, maxActivityLimit), nil
}

func (s *Server) activityLogs(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	groups, err := s.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

func (s *Server) archiveActivity(c *gin.Context) {
	if s.archiver == nil {
		s.writeError(c, common.ErrArchiveDisabled)
		return
	}

	limit, err := parseLimit(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	groups, err := s.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	key, err := s.archiver.Archive(c.Request.Context(), groups)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "audit archived", "key", key, "actor_id", currentSession(c).AccountID)
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (s *Server) listUsers(c *gin.Context) {
	list, err := s.accounts.ListAccounts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	now := s.now()
	out := make([]accountView, 0, len(list))
	for _, a := range list {
		out = append(out, newAccountView(a, now))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUser(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		s.writeError(c, common.ErrorNotFound)
		return
	}

	acc, err := s.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAccountView(acc, s.now()))
}

func (s *Server) setRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, malformedBody())
		return
	}

	id := c.Param("id")
	if uuid.Validate(id) != nil {
		s.writeError(c, common.ErrorNotFound)
		return
	}

	acc, err := s.accounts.SetRole(c.Request.Context(), currentSession(c).AccountID, id, req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAccountView(acc, s.now()))
}
