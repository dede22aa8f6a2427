package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/billtrackerhq/billtracker-backend/internal/api/middleware"
	"github.com/billtrackerhq/billtracker-backend/internal/api/response"
	apperrors "github.com/billtrackerhq/billtracker-backend/internal/errors"
	"github.com/billtrackerhq/billtracker-backend/internal/extraction"
	"github.com/billtrackerhq/billtracker-backend/internal/models"
	"github.com/billtrackerhq/billtracker-backend/internal/notify"
	"github.com/billtrackerhq/billtracker-backend/internal/repository"
	"github.com/billtrackerhq/billtracker-backend/internal/storage"
	"github.com/billtrackerhq/billtracker-backend/internal/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// placeholderTitle is shown until extraction or a manual edit
	// provides a real one.
	placeholderTitle = "Processing..."

	paidHistoryLimit = 20
)

// BillHandler handles bill-related HTTP requests
type BillHandler struct {
	billRepo    repository.BillRepository
	fileStorage storage.FileStorage
	extractor   extraction.Client
	dispatcher  *notify.Dispatcher
	hub         *websocket.Hub
	logger      *slog.Logger
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(
	billRepo repository.BillRepository,
	fileStorage storage.FileStorage,
	extractor extraction.Client,
	dispatcher *notify.Dispatcher,
	hub *websocket.Hub,
	logger *slog.Logger,
) *BillHandler {
	return &BillHandler{
		billRepo:    billRepo,
		fileStorage: fileStorage,
		extractor:   extractor,
		dispatcher:  dispatcher,
		hub:         hub,
		logger:      logger,
	}
}

// BillView decorates a bill with its derived fields
type BillView struct {
	models.Bill
	DaysLeft *int   `json:"days_left,omitempty"`
	FileType string `json:"file_type"`
}

// BillListResponse is the payload for GET /api/bills
type BillListResponse struct {
	Open      []BillView `json:"open"`
	Paid      []BillView `json:"paid"`
	OpenCount int        `json:"open_count"`
}

// MonthlyStat is one month's paid total
type MonthlyStat struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// repoError translates a repository failure into the standard error
// response, falling back to a 500 with the given message.
func repoError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return response.Error(c, apperrors.ErrBillNotFound)
	case errors.Is(err, repository.ErrDuplicateEntry):
		return response.Error(c, apperrors.NewAppError(
			apperrors.ErrDuplicateEntry,
			"a bill with this file already exists",
			apperrors.CodeDuplicateEntry))
	default:
		return response.InternalError(c, fallback)
	}
}

func toView(bill models.Bill) BillView {
	return BillView{
		Bill:     bill,
		DaysLeft: bill.DaysLeft(),
		FileType: bill.FileType(),
	}
}

func toViews(bills []models.Bill) []BillView {
	views := make([]BillView, 0, len(bills))
	for _, b := range bills {
		views = append(views, toView(b))
	}
	return views
}

// List handles GET /api/bills
func (h *BillHandler) List(c echo.Context) error {
	userID := middleware.UserID(c)
	search := strings.TrimSpace(c.QueryParam("q"))

	open, err := h.billRepo.ListOpenByUser(c.Request().Context(), userID, search)
	if err != nil {
		return response.InternalError(c, "failed to list bills")
	}

	// The dashboard shows a short history; a search spans all paid bills
	limit := paidHistoryLimit
	if search != "" {
		limit = 0
	}
	paid, err := h.billRepo.ListPaidByUser(c.Request().Context(), userID, search, limit)
	if err != nil {
		return response.InternalError(c, "failed to list bills")
	}

	return response.Success(c, BillListResponse{
		Open:      toViews(open),
		Paid:      toViews(paid),
		OpenCount: len(open),
	})
}

// Stats handles GET /api/bills/stats
func (h *BillHandler) Stats(c echo.Context) error {
	userID := middleware.UserID(c)

	paid, err := h.billRepo.ListPaidByUser(c.Request().Context(), userID, "", 0)
	if err != nil {
		return response.InternalError(c, "failed to load stats")
	}

	totals := make(map[string]*MonthlyStat)
	for _, bill := range paid {
		if bill.Amount == nil || bill.PaidAt == nil {
			continue
		}
		month := bill.PaidAt.Format("2006-01")
		stat, ok := totals[month]
		if !ok {
			stat = &MonthlyStat{Month: month}
			totals[month] = stat
		}
		stat.Total += *bill.Amount
		stat.Count++
	}

	stats := make([]MonthlyStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month < stats[j].Month })

	return response.Success(c, stats)
}

// Get handles GET /api/bills/:id
func (h *BillHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid bill ID")
	}

	bill, err := h.billRepo.GetByIDForUser(c.Request().Context(), uint(id), userID)
	if err != nil {
		return repoError(c, err, "failed to get bill")
	}

	return response.Success(c, toView(*bill))
}

// UpdateBillRequest is the payload for PATCH /api/bills/:id. Malformed
// fields are ignored individually rather than failing the request.
type UpdateBillRequest struct {
	Title   *string  `json:"title"`
	DueDate *string  `json:"due_date"`
	Amount  *float64 `json:"amount"`
}

// Update handles PATCH /api/bills/:id
func (h *BillHandler) Update(c echo.Context) error {
	userID := middleware.UserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid bill ID")
	}

	var req UpdateBillRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	bill, err := h.billRepo.GetByIDForUser(c.Request().Context(), uint(id), userID)
	if err != nil {
		return repoError(c, err, "failed to get bill")
	}

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			bill.Title = title
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			bill.DueDate = nil
		} else if due, err := time.Parse("2006-01-02", *req.DueDate); err == nil {
			bill.DueDate = &due
		}
	}
	if req.Amount != nil && *req.Amount >= 0 {
		bill.Amount = req.Amount
	}

	if err := h.billRepo.Update(c.Request().Context(), bill); err != nil {
		return response.InternalError(c, "failed to update bill")
	}

	return response.Success(c, toView(*bill))
}

// Pay handles POST /api/bills/:id/pay
func (h *BillHandler) Pay(c echo.Context) error {
	userID := middleware.UserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid bill ID")
	}

	now := time.Now()
	if err := h.billRepo.MarkPaid(c.Request().Context(), uint(id), userID, now); err != nil {
		return repoError(c, err, "failed to mark bill paid")
	}

	bill, err := h.billRepo.GetByIDForUser(c.Request().Context(), uint(id), userID)
	if err != nil {
		return response.InternalError(c, "failed to reload bill")
	}

	if h.hub != nil {
		h.hub.PublishBillEvent(userID, websocket.EventTypeBillPaid, eventPayload(bill))
	}

	return response.Success(c, toView(*bill))
}

// Delete handles DELETE /api/bills/:id
func (h *BillHandler) Delete(c echo.Context) error {
	userID := middleware.UserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid bill ID")
	}

	if err := h.billRepo.Delete(c.Request().Context(), uint(id), userID); err != nil {
		return repoError(c, err, "failed to delete bill")
	}

	return response.NoContent(c)
}

// Create handles POST /api/bills (multipart upload). One or more files
// plus optional title and due_date form fields. Disallowed extensions
// are skipped; a request with no usable file is rejected.
func (h *BillHandler) Create(c echo.Context) error {
	userID := middleware.UserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "expected multipart form data")
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}

	usable := make([]*multipart.FileHeader, 0, len(files))
	var total int64
	for _, f := range files {
		if !storage.AllowedFile(f.Filename) {
			continue
		}
		usable = append(usable, f)
		total += f.Size
	}
	if len(usable) == 0 {
		return response.BadRequest(c, "no file with a supported extension (pdf, png, jpg, jpeg)")
	}
	if total > storage.MaxUploadSize {
		return response.PayloadTooLarge(c, "upload exceeds the 16 MiB limit")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	var dueDate *time.Time
	if raw := strings.TrimSpace(c.FormValue("due_date")); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "due_date must be YYYY-MM-DD")
		}
		dueDate = &due
	}

	ts := time.Now().Unix()
	stored := make([]string, 0, len(usable))
	var primaryContent []byte
	for i, f := range usable {
		filename := storage.ManualFilename(ts, i, storage.Ext(f.Filename))
		content, err := readUpload(f)
		if err != nil {
			h.cleanupFiles(stored)
			return response.InternalError(c, "failed to read uploaded file")
		}
		if err := h.fileStorage.Save(filename, bytes.NewReader(content)); err != nil {
			h.cleanupFiles(stored)
			return response.InternalError(c, "failed to store uploaded file")
		}
		stored = append(stored, filename)
		if i == 0 {
			primaryContent = content
		}
	}

	// Extraction fills only the fields the caller left unset; the
	// amount has no form field, so it is always extraction's to fill.
	var amount *float64
	if h.extractor != nil {
		result, err := h.extractor.Extract(c.Request().Context(), stored[0], primaryContent)
		if err != nil {
			h.logger.Warn("Extraction failed for upload",
				"filename", stored[0],
				"error", err)
		} else {
			if title == "" && result.Title != nil {
				title = *result.Title
			}
			if dueDate == nil && result.DueDate != nil {
				dueDate = result.DueDate
			}
			amount = result.Amount
		}
	}
	if title == "" {
		title = placeholderTitle
	}

	bill := &models.Bill{
		Title:    title,
		Filename: stored[0],
		Status:   models.StatusOpen,
		DueDate:  dueDate,
		Amount:   amount,
		UserID:   userID,
	}
	extraFiles := make([]models.BillFile, 0, len(stored)-1)
	for _, name := range stored[1:] {
		extraFiles = append(extraFiles, models.BillFile{Filename: name})
	}

	if err := h.billRepo.CreateWithFiles(c.Request().Context(), bill, extraFiles); err != nil {
		h.cleanupFiles(stored)
		return repoError(c, err, "failed to create bill")
	}

	if h.hub != nil {
		h.hub.PublishBillEvent(userID, websocket.EventTypeBillCreated, eventPayload(bill))
	}

	return response.Created(c, toView(*bill))
}

func (h *BillHandler) cleanupFiles(filenames []string) {
	for _, name := range filenames {
		if err := h.fileStorage.Delete(name); err != nil {
			h.logger.Warn("Failed to remove stored file during rollback",
				"filename", name,
				"error", err)
		}
	}
}

func readUpload(f *multipart.FileHeader) ([]byte, error) {
	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()
	return io.ReadAll(src)
}

func eventPayload(bill *models.Bill) *websocket.BillPayload {
	payload := &websocket.BillPayload{
		ID:       bill.ID,
		Title:    bill.Title,
		Amount:   bill.Amount,
		Status:   bill.Status,
		Filename: bill.Filename,
	}
	if bill.DueDate != nil {
		payload.DueDate = bill.DueDate.Format("2006-01-02")
	}
	return payload
}
