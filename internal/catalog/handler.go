package catalog

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
	httperr "github.com/drlau/megumin.love/internal/core/errors"
	"github.com/drlau/megumin.love/internal/core/storage"
)

// RegisterRoutes registers the admin catalog mutation endpoints.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	admin := r.Group("/admin")
	admin.POST("/sounds", s.HandleRegister)
	admin.PATCH("/sounds/:filename", s.HandleRename)
	admin.DELETE("/sounds/:filename", s.HandleRemove)
}

// HandleRegister handles POST /admin/sounds. The request is a multipart
// form carrying the metadata fields plus one or more audio files under
// "files"; the whole body is capped at the configured upload limit.
func (s *Service) HandleRegister(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	var req v1.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid sound metadata",
			Details:   err.Error(),
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		writeBindError(c, err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "At least one audio file is required",
		})
		return
	}

	payloads := make([]Payload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to read uploaded file",
				Details:   err.Error(),
			})
			return
		}
		defer f.Close()
		payloads = append(payloads, Payload{Ext: filepath.Ext(fh.Filename), Reader: f})
	}

	sound, err := s.Register(c.Request.Context(), req, payloads)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sound)
}

// HandleRename handles PATCH /admin/sounds/:filename.
func (s *Service) HandleRename(c *gin.Context) {
	var req v1.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid request body",
			Details:   err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid rename request",
			Details:   err.Error(),
		})
		return
	}

	sound, err := s.Rename(c.Request.Context(), c.Param("filename"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sound)
}

// HandleRemove handles DELETE /admin/sounds/:filename.
func (s *Service) HandleRemove(c *gin.Context) {
	sound, err := s.Remove(c.Request.Context(), c.Param("filename"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sound)
}

// writeServiceError maps catalog service errors onto the API error
// contract.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrDuplicateSound):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpDuplicateSound,
			Message:   "A sound with this filename already exists",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrSoundNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpSoundNotFound,
			Message:   "No sound with this filename",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrInvalidFilename):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid sound filename",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrPayloadIO):
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpPersistenceFailure,
			Message:   "Payload files could not be updated",
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpPersistenceFailure,
			Message:   "Failed to update the sound catalog",
			Details:   err.Error(),
		})
	}
}

// writeBindError reports a multipart parse failure, distinguishing an
// oversized body from a malformed one.
func writeBindError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
			ErrorType: httperr.HttpPayloadTooLarge,
			Message:   "Upload exceeds the configured size limit",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidRequestError,
		Message:   "Invalid upload request",
		Details:   err.Error(),
	})
}
