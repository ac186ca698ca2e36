package handler

import (
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/grievance"
	"net/http"

	"github.com/gin-gonic/gin"
)

type submitRequest struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description" binding:"required"`
	Category    string `form:"category" binding:"required"`
}

type assignRequest struct {
	MemberID uint `json:"member_id" binding:"required"`
}

type resolveRequest struct {
	ActionTaken string `json:"action_taken" binding:"required"`
	Remarks     string `json:"remarks"`
}

// Submit приймає скаргу як multipart-форму з необов'язковим файлом "evidence"
func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := grievance.SubmitInput{Title: req.Title, Description: req.Description, Category: req.Category}
	if fh, err := c.FormFile("evidence"); err == nil {
		if h.MaxEvidenceBytes > 0 && fh.Size > h.MaxEvidenceBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "evidence file is too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, err)
			return
		}
		defer f.Close()
		in.Attachment = &grievance.Attachment{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	}

	complaint, err := h.Grievances.Submit(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Grievance submitted successfully", "complaint": complaint})
}

func (h *Handler) History(c *gin.Context) {
	complaints, err := h.Grievances.History(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func (h *Handler) Assigned(c *gin.Context) {
	complaints, err := h.Grievances.Assigned(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func (h *Handler) AvailableMembers(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	members, err := h.Grievances.AvailableMembers(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	complaint, err := h.Grievances.Assign(c.Request.Context(), id, req.MemberID, middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grievance assigned successfully", "complaint": complaint})
}

func (h *Handler) Resolve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resolution, err := h.Grievances.Resolve(c.Request.Context(), id, middleware.CurrentUser(c), req.ActionTaken, req.Remarks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grievance resolved successfully", "resolution": resolution})
}

func (h *Handler) Track(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	details, err := h.Grievances.Track(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
