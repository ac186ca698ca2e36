package handler

import (
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/grievance"
	"grievance/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type updateUserRequest struct {
	Role              models.Role `json:"user_role" binding:"required"`
	IsCommitteeMember *bool       `json:"is_committee_member" binding:"required"`
}

type escalateRequest struct {
	Reason    string `json:"reason" binding:"required"`
	ToAdminID uint   `json:"to_admin_id"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.Users.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Users.UpdateRoleAndMembership(c.Request.Context(), id, req.Role, *req.IsCommitteeMember, middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": user})
}

// ListComplaints serves ?view=all|unassigned|assigned|escalated, all by default.
func (h *Handler) ListComplaints(c *gin.Context) {
	view := c.DefaultQuery("view", grievance.ViewAll)
	complaints, err := h.Grievances.List(c.Request.Context(), view)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// Escalate hands a complaint to an admin, the caller unless to_admin_id is given.
func (h *Handler) Escalate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	to := req.ToAdminID
	if to == 0 {
		to = middleware.CurrentUser(c).ID
	}
	esc, err := h.Grievances.Escalate(c.Request.Context(), id, req.Reason, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grievance escalated", "escalation": esc})
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Grievances.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grievance deleted successfully"})
}

func (h *Handler) Sweep(c *gin.Context) {
	n, err := h.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalated": n})
}
