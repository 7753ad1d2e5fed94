package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/form"
	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/upload"
	"github.com/DukeRupert/shopdesk/internal/view"
)

const (
	// maxFilesPerRequest bounds one upload request together with the
	// per-file limit.
	maxFilesPerRequest = 10

	// multipartMemory is how much of a multipart body is kept in memory
	// before spilling to temporary files.
	multipartMemory = 8 << 20
)

// DraftHandler serves the htmx fragments of an open form: the upload
// control, the address cascade and the previews of staged files.
//
// Routes handled:
// - POST   /drafts/{id}/files          -> AddFiles
// - DELETE /drafts/{id}/files/{index}  -> RemoveFile
// - POST   /drafts/{id}/files/reorder  -> ReorderFiles
// - POST   /drafts/{id}/address        -> SelectAddress
// - GET    /previews/{token}           -> Preview
type DraftHandler struct {
	uploads   *service.UploadService
	customers *service.CustomerService
	logger    *slog.Logger
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(uploads *service.UploadService, customers *service.CustomerService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{uploads: uploads, customers: customers, logger: logger}
}

// RegisterRoutes registers the draft routes with the provided mux.
func (h *DraftHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /drafts/{id}/files", requireUser(http.HandlerFunc(h.AddFiles)))
	mux.Handle("DELETE /drafts/{id}/files/{index}", requireUser(http.HandlerFunc(h.RemoveFile)))
	mux.Handle("POST /drafts/{id}/files/reorder", requireUser(http.HandlerFunc(h.ReorderFiles)))
	mux.Handle("POST /drafts/{id}/address", requireUser(http.HandlerFunc(h.SelectAddress)))
	mux.Handle("GET /previews/{token}", requireUser(http.HandlerFunc(h.Preview)))
}

// =============================================================================
// Upload control
// =============================================================================

// AddFiles stages the files of the "files" field and renders the list.
// Oversized files never reach the list.
func (h *DraftHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()*maxFilesPerRequest+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderFilesError(w, r, id, "The selected files are too large to upload at once.")
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid("upload.add", "Invalid upload. Please try again."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files, closeFiles, err := openParts(headers)
	defer closeFiles()
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	d, err := h.uploads.Add(r.Context(), id, files)
	if err != nil {
		if domain.ErrorCode(err) == domain.ETOOLARGE {
			h.renderFilesError(w, r, id, domain.ErrorMessage(err))
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderFiles(w, r, d, "")
}

// RemoveFile drops one item. An out of range index leaves the list as is.
func (h *DraftHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("upload.remove", "Invalid file index."))
		return
	}

	d, err := h.uploads.Remove(r.Context(), id, index)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderFiles(w, r, d, "")
}

// ReorderFiles moves the item at "from" to "to". A missing "to" is a drop
// outside the list and changes nothing.
func (h *DraftHandler) ReorderFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	from, err := strconv.Atoi(r.FormValue("from"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("upload.reorder", "Invalid file index."))
		return
	}
	to := upload.NoTarget
	if raw := r.FormValue("to"); raw != "" {
		if to, err = strconv.Atoi(raw); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("upload.reorder", "Invalid file index."))
			return
		}
	}

	d, err := h.uploads.Reorder(r.Context(), id, from, to)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderFiles(w, r, d, "")
}

func (h *DraftHandler) renderFiles(w http.ResponseWriter, r *http.Request, d draft.Draft, message string) {
	RenderComponent(w, r, h.logger, view.FileList(view.FileListProps{
		DraftID:  d.ID.String(),
		Entries:  h.uploads.Entries(d),
		Multiple: h.uploads.Control(&d).Multiple,
		MaxBytes: h.uploads.MaxBytes(),
		Error:    message,
		ReadOnly: !d.FilesEditable(),
	}))
}

// renderFilesError re-renders the unchanged list with an inline message.
func (h *DraftHandler) renderFilesError(w http.ResponseWriter, r *http.Request, id uuid.UUID, message string) {
	d, err := h.uploads.Draft(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.renderFiles(w, r, d, message)
}

// openParts opens every uploaded part. The returned func closes whatever
// was opened, including on error.
func openParts(headers []*multipart.FileHeader) ([]service.File, func(), error) {
	files := make([]service.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)

		// Browsers send octet-stream for types they do not know; let the
		// file name decide instead.
		ct := fh.Header.Get("Content-Type")
		if ct == "application/octet-stream" {
			ct = ""
		}
		files = append(files, service.File{
			Name:        fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// =============================================================================
// Address cascade
// =============================================================================

// SelectAddress records the value chosen at "level" and renders the three
// selects with the options that now apply.
func (h *DraftHandler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.draftID(w, r)
	if !ok {
		return
	}

	level, ok := domain.ParseAddressLevel(r.FormValue("level"))
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid("customer.select_address", "Unknown address field."))
		return
	}
	code := r.FormValue(form.AddressFieldName(level))

	sel, fields, err := h.customers.SelectAddress(r.Context(), id, level, code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	RenderComponent(w, r, h.logger, view.AddressSelects(id.String(), true, sel, fields, nil))
}

// =============================================================================
// Previews
// =============================================================================

// Preview streams the bytes behind a display URL of a staged file.
func (h *DraftHandler) Preview(w http.ResponseWriter, r *http.Request) {
	rc, info, err := h.uploads.Preview(r.Context(), r.PathValue("token"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("preview copy interrupted", "error", err)
	}
}

// draftID parses the {id} path value, answering 404 when it is malformed.
func (h *DraftHandler) draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
