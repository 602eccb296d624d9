package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio/internal/metrics"
	"portfolio/internal/models"
	"portfolio/internal/service/portfolio"
)

const (
	resumeDownloadName = "Aman_Singh_Resume.pdf"
	reloadTimeout      = time.Minute
)

func (h *Handler) listProjects(c *gin.Context) {
	projects, err := h.portfolio.ListProjects(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) createProject(c *gin.Context) {
	var req models.Project
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	project, err := h.portfolio.CreateProject(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) updateProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var patch models.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	project, err := h.portfolio.UpdateProject(c.Request.Context(), id, patch)
	if err != nil {
		h.writeServiceError(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.portfolio.DeleteProject(c.Request.Context(), id); err != nil {
		h.writeServiceError(c, err, "Project not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid project id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) uploadResume(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	limit := h.portfolio.MaxUploadBytes()
	if file.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": fmt.Sprintf("File too large (max %dMB)", limit>>20)})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "open file failed"})
		return
	}
	defer f.Close()

	meta, err := h.portfolio.SaveResume(c.Request.Context(), file.Filename, f)
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	h.indexResume(meta.FilePath)
	c.JSON(http.StatusCreated, gin.H{"message": "Resume uploaded successfully", "filename": meta.Filename})
}

// indexResume rebuilds the document index with the new resume in the background.
func (h *Handler) indexResume(path string) {
	if h.knowledge == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := h.knowledge.IndexResume(ctx, path); err != nil {
			h.logger.Warn().Err(err).Str("path", path).Msg("resume indexing failed")
		}
	}()
}

func (h *Handler) downloadResume(c *gin.Context) {
	meta, err := h.portfolio.ResumeFile(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "No resume uploaded yet")
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(meta.FilePath, resumeDownloadName)
}

func (h *Handler) resumeInfo(c *gin.Context) {
	meta, err := h.portfolio.ActiveResume(c.Request.Context())
	if errors.Is(err, portfolio.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available":   true,
		"uploaded_at": meta.UploadedAt,
		"filename":    meta.Filename,
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *Handler) submitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	_, err := h.portfolio.SubmitContact(c.Request.Context(), models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	metrics.ContactMessages.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Message received"})
}

func (h *Handler) listContacts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.portfolio.ListContacts(c.Request.Context(), limit)
	if err != nil {
		h.writeServiceError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, messages)
}
