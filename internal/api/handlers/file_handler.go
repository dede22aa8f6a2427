package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/billtrackerhq/billtracker-backend/internal/api/middleware"
	"github.com/billtrackerhq/billtracker-backend/internal/api/response"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// FileHandler streams stored bill documents
type FileHandler struct {
	billRepo    repository.BillRepository
	fileStorage storage.FileStorage
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(billRepo repository.BillRepository, fileStorage storage.FileStorage) *FileHandler {
	return &FileHandler{
		billRepo:    billRepo,
		fileStorage: fileStorage,
	}
}

// Serve handles GET /api/files/:filename. The filename resolves the
// owning bill; only that bill's owner may fetch the file.
func (h *FileHandler) Serve(c echo.Context) error {
	userID := middleware.UserID(c)
	filename := c.Param("filename")

	bill, err := h.billRepo.GetByAnyFilename(c.Request().Context(), filename)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "file not found")
		}
		return response.InternalError(c, "failed to resolve file")
	}
	if bill.UserID != userID {
		return response.Forbidden(c, "you do not own this file")
	}

	file, err := h.fileStorage.Get(filename)
	if err != nil {
		return response.NotFound(c, "file not found")
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set("Content-Type", contentType)
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))

	if _, err := io.Copy(c.Response().Writer, file); err != nil {
		return response.InternalError(c, "failed to send file")
	}
	return nil
}
