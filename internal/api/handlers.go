package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"notivate/internal/auth"
	"notivate/internal/models"
	"notivate/internal/service/notes"
	"notivate/internal/service/transform"
	"notivate/internal/service/usage"
	"notivate/internal/upload"
)

// Handler wires HTTP routes to the transform pipeline and note storage.
type Handler struct {
	auth       *auth.Service
	pipeline   *transform.Pipeline
	notes      *notes.Service
	accounting *usage.Service
	staging    *upload.Staging
}

// NewHandler constructs a Handler instance.
func NewHandler(authService *auth.Service, pipeline *transform.Pipeline, notesService *notes.Service, accounting *usage.Service, staging *upload.Staging) *Handler {
	return &Handler{
		auth:       authService,
		pipeline:   pipeline,
		notes:      notesService,
		accounting: accounting,
		staging:    staging,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)

	authMW := h.auth.Middleware()
	api.GET("/me", authMW, h.currentUser)
	api.POST("/upload", authMW, h.uploadAndTransform)

	noteRoutes := api.Group("/notes", authMW)
	noteRoutes.GET("", h.listNotes)
	noteRoutes.GET("/:id", h.getNote)
	noteRoutes.POST("", h.createNote)
	noteRoutes.DELETE("/:id", h.deleteNote)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) authorizedIdentity(c *gin.Context) (*models.Identity, bool) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return nil, false
	}
	return identity, true
}

// currentUser reports the caller's profile and current-month usage so
// the client can render the quota meter.
func (h *Handler) currentUser(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	rec, err := h.accounting.Current(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user info"})
		return
	}
	var limit any
	if !identity.Premium() {
		limit = usage.FreeTierLimit
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":               identity.UserID,
			"email":            identity.Email,
			"subscriptionTier": identity.Tier,
		},
		"usage": gin.H{
			"transformsThisMonth": rec.TransformsCount,
			"limit":               limit,
		},
	})
}

// uploadAndTransform accepts one image, runs the pipeline, and returns
// the structured study guide.
func (h *Handler) uploadAndTransform(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded. Please include an image file."})
		return
	}
	if fileHeader.Size > upload.MaxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": upload.ErrTooLarge.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image"})
		return
	}
	defer file.Close()

	staged, err := h.staging.Stash(file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrEmptyImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, upload.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded image"})
		}
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), identity, staged)
	if err != nil {
		h.writePipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"rawText":    result.RawText,
		"studyGuide": result.StudyGuide,
	})
}

// writePipelineError maps the pipeline error taxonomy onto HTTP
// responses. Quota rejections carry the counters the client renders.
func (h *Handler) writePipelineError(c *gin.Context, err error) {
	var quotaErr *transform.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":        "Monthly transform limit reached",
			"message":      "You've used all " + strconv.Itoa(quotaErr.Limit) + " free transforms this month. Upgrade to Premium for unlimited transforms!",
			"currentUsage": quotaErr.CurrentUsage,
			"limit":        quotaErr.Limit,
			"upgradePath":  "/pricing",
		})
	case errors.Is(err, transform.ErrNoTextFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": transform.ErrNoTextFound.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) listNotes(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	noteList, err := h.notes.List(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": noteList})
}

func (h *Handler) getNote(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	noteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || noteID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note id"})
		return
	}
	note, err := h.notes.Get(c.Request.Context(), identity.UserID, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

type createNoteRequest struct {
	StudyGuide *models.StudyGuide `json:"studyGuide"`
	RawText    string             `json:"rawText"`
}

func (h *Handler) createNote(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StudyGuide == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Study guide is required"})
		return
	}
	note, err := h.notes.Save(c.Request.Context(), identity.UserID, req.StudyGuide, req.RawText)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save note"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "note": note})
}

func (h *Handler) deleteNote(c *gin.Context) {
	identity, ok := h.authorizedIdentity(c)
	if !ok {
		return
	}
	noteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || noteID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note id"})
		return
	}
	if err := h.notes.Delete(c.Request.Context(), identity.UserID, noteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Note deleted"})
}
