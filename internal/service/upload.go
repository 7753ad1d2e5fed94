package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/draft"
	"github.com/DukeRupert/shopdesk/internal/metrics"
	"github.com/DukeRupert/shopdesk/internal/storage"
	"github.com/DukeRupert/shopdesk/internal/upload"
)

// File is an upload received from the browser.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Entry is a list item paired with the URL its preview loads from.
type Entry struct {
	Index int
	Item  upload.Item
	URL   string
}

// UploadService applies the upload control to a draft's file list and
// keeps the staged bytes in storage in step with it.
//
// Every change to a draft goes through the draft's lock, so overlapping
// htmx requests on one form apply one after the other.
type UploadService struct {
	drafts   draft.Store
	storage  storage.Storage
	thumbs   ThumbnailProcessor
	urls     *upload.ObjectURLs
	maxBytes int64
	logger   *slog.Logger
	locks    draft.Locks
}

// ErrFilesLocked is returned for upload changes on a form whose images
// cannot be changed.
var ErrFilesLocked = errors.New("images can only be chosen when the product is created")

// NewUploadService creates an UploadService. maxBytes <= 0 uses
// upload.DefaultMaxSizeBytes.
func NewUploadService(
	drafts draft.Store,
	store storage.Storage,
	thumbs ThumbnailProcessor,
	urls *upload.ObjectURLs,
	maxBytes int64,
	logger *slog.Logger,
) *UploadService {
	if maxBytes <= 0 {
		maxBytes = upload.DefaultMaxSizeBytes
	}
	return &UploadService{
		drafts:   drafts,
		storage:  store,
		thumbs:   thumbs,
		urls:     urls,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes returns the per-file size limit.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Control returns the upload control for a draft. Its OnChange writes the
// new list into d. Product images take several files and are required
// when the product is created.
func (s *UploadService) Control(d *draft.Draft) *upload.Control {
	return &upload.Control{
		MaxSizeBytes: s.maxBytes,
		Multiple:     d.Kind == draft.KindProduct,
		Required:     d.Kind == draft.KindProduct && d.IsNew(),
		OnChange:     func(l upload.List) { d.Files = l },
		URLs:         s.urls,
		Logger:       s.logger,
	}
}

// Draft loads an unexpired draft.
func (s *UploadService) Draft(ctx context.Context, id uuid.UUID) (draft.Draft, error) {
	d, err := s.drafts.Get(ctx, id)
	if errors.Is(err, draft.ErrNotFound) {
		return draft.Draft{}, &domain.Error{
			Code:    domain.ENOTFOUND,
			Op:      "draft.get",
			Message: "This form has expired. Please reopen it.",
			Err:     err,
		}
	}
	if err != nil {
		return draft.Draft{}, domain.Internal(err, "draft.get", "failed to load form")
	}
	return d, nil
}

// Entries pairs every item of the draft with its display URL.
func (s *UploadService) Entries(d draft.Draft) []Entry {
	ctrl := s.Control(&d)
	out := make([]Entry, len(d.Files))
	for i, it := range d.Files {
		out[i] = Entry{Index: i, Item: it, URL: ctrl.DisplayURL(it)}
	}
	return out
}

// =============================================================================
// Mutations
// =============================================================================

// Update loads a draft, applies fn and saves the result while holding the
// draft's lock. An error from fn is returned as is and nothing is saved.
func (s *UploadService) Update(ctx context.Context, id uuid.UUID, op string, fn func(*draft.Draft) error) (draft.Draft, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.Draft(ctx, id)
	if err != nil {
		return draft.Draft{}, err
	}
	if err := fn(&d); err != nil {
		return draft.Draft{}, err
	}
	saved, err := s.drafts.Save(ctx, d)
	if err != nil {
		return draft.Draft{}, domain.Internal(err, op, "failed to save form")
	}
	return saved, nil
}

// editable loads a draft whose upload list may change.
func (s *UploadService) editable(ctx context.Context, id uuid.UUID, op string) (draft.Draft, error) {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return draft.Draft{}, err
	}
	if !d.FilesEditable() {
		return draft.Draft{}, &domain.Error{Code: domain.EINVALID, Op: op, Message: "Images can only be chosen when the product is created.", Err: ErrFilesLocked}
	}
	return d, nil
}

// Add stages the accepted files and appends them to the draft's list.
// Files of an unsupported type or over the size limit are dropped
// silently; they are logged and counted.
func (s *UploadService) Add(ctx context.Context, id uuid.UUID, files []File) (draft.Draft, error) {
	const op = "upload.add"

	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.editable(ctx, id, op)
	if err != nil {
		return draft.Draft{}, err
	}

	items := make([]upload.Item, 0, len(files))
	bodies := make(map[string]File, len(files))
	for _, f := range files {
		ct := storage.DetectContentType(f.ContentType, f.Name, nil)
		if !storage.IsAllowedUploadType(ct) {
			metrics.FileRejected("type")
			s.logger.Debug("dropped file of unsupported type", "name", f.Name, "content_type", ct)
			continue
		}
		key := storage.StagedFileKey(d.ID, f.Name)
		items = append(items, upload.LocalFile(key, f.Name, f.Size, ct))
		bodies[key] = f
	}

	prev := d.Files
	s.Control(&d).Add(prev, items)
	added, removed := upload.Diff(prev, d.Files)

	staged := make([]upload.Item, 0, len(added))
	for _, it := range added {
		if err := s.stage(ctx, it, bodies[it.Handle]); err != nil {
			s.unstage(ctx, staged)
			if storage.IsTooLarge(err) {
				// The declared size passed the filter but the body did not.
				metrics.FileRejected("too_large")
				return draft.Draft{}, &domain.Error{Code: domain.ETOOLARGE, Op: op, Message: fmt.Sprintf("%s is too large.", it.Name), Err: err}
			}
			return draft.Draft{}, domain.Internal(err, op, "failed to store the upload")
		}
		staged = append(staged, it)
	}

	saved, err := s.drafts.Save(ctx, d)
	if err != nil {
		s.unstage(ctx, staged)
		return draft.Draft{}, domain.Internal(err, op, "failed to save form")
	}
	s.unstage(ctx, removed)
	return saved, nil
}

// Remove drops the item at index from the draft's list.
func (s *UploadService) Remove(ctx context.Context, id uuid.UUID, index int) (draft.Draft, error) {
	return s.mutate(ctx, id, "upload.remove", func(c *upload.Control, l upload.List) {
		c.Remove(l, index)
	})
}

// Reorder moves the item at from to index to. to may be upload.NoTarget.
func (s *UploadService) Reorder(ctx context.Context, id uuid.UUID, from, to int) (draft.Draft, error) {
	return s.mutate(ctx, id, "upload.reorder", func(c *upload.Control, l upload.List) {
		c.Reorder(l, from, to)
	})
}

func (s *UploadService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*upload.Control, upload.List)) (draft.Draft, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.editable(ctx, id, op)
	if err != nil {
		return draft.Draft{}, err
	}

	prev := d.Files
	fn(s.Control(&d), prev)
	_, removed := upload.Diff(prev, d.Files)

	saved, err := s.drafts.Save(ctx, d)
	if err != nil {
		return draft.Draft{}, domain.Internal(err, op, "failed to save form")
	}
	s.unstage(ctx, removed)
	return saved, nil
}

// Discard drops a draft together with its staged files and preview URLs.
// The stored list is used when the draft still exists, so files added
// after d was loaded are removed too.
func (s *UploadService) Discard(ctx context.Context, d draft.Draft) error {
	unlock := s.locks.Lock(d.ID)
	defer unlock()

	if cur, err := s.drafts.Get(ctx, d.ID); err == nil {
		d = cur
	}
	s.unstage(ctx, d.Files)
	if err := s.drafts.Delete(ctx, d.ID); err != nil {
		return domain.Internal(err, "draft.discard", "failed to delete form")
	}
	return nil
}

// Cleanup removes the staged files of drafts the store already deleted.
func (s *UploadService) Cleanup(ctx context.Context, drafts []draft.Draft) int {
	n := 0
	for _, d := range drafts {
		n += len(d.Files.Locals())
		s.unstage(ctx, d.Files)
	}
	return n
}

// =============================================================================
// Reading staged files
// =============================================================================

// Preview opens the bytes behind an object URL token. The rendered preview
// is preferred; the original is served when no preview exists.
func (s *UploadService) Preview(ctx context.Context, token string) (io.ReadCloser, storage.ObjectInfo, error) {
	const op = "upload.preview"

	item, ok := s.urls.Resolve(token)
	if !ok {
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "preview", token)
	}

	rc, info, err := s.storage.Get(ctx, storage.PreviewKey(item.Handle))
	if err == nil {
		return rc, info, nil
	}
	if !storage.IsNotFound(err) {
		s.logger.Warn("failed to load preview", "handle", item.Handle, "error", err)
	}

	rc, info, err = s.storage.Get(ctx, item.Handle)
	if storage.IsNotFound(err) {
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "file", item.Name)
	}
	if err != nil {
		return nil, storage.ObjectInfo{}, domain.Internal(err, op, "failed to load file")
	}
	return rc, info, nil
}

// OpenLocals opens the staged bytes of every local item, in list order.
// The caller closes the returned readers.
func (s *UploadService) OpenLocals(ctx context.Context, list upload.List) ([]io.ReadCloser, []upload.Item, error) {
	locals := list.Locals()
	readers := make([]io.ReadCloser, 0, len(locals))
	for _, it := range locals {
		rc, _, err := s.storage.Get(ctx, it.Handle)
		if err != nil {
			closeAll(readers)
			if storage.IsNotFound(err) {
				return nil, nil, &domain.Error{
					Code:    domain.ENOTFOUND,
					Op:      "upload.open",
					Message: fmt.Sprintf("%s is no longer available. Please add it again.", it.Name),
					Err:     err,
				}
			}
			return nil, nil, domain.Internal(err, "upload.open", "failed to read staged file")
		}
		readers = append(readers, rc)
	}
	return readers, locals, nil
}

func closeAll(readers []io.ReadCloser) {
	for _, rc := range readers {
		rc.Close()
	}
}

// =============================================================================
// Staging
// =============================================================================

// stage stores the bytes of a local item and renders its preview. Preview
// failures are logged only.
func (s *UploadService) stage(ctx context.Context, it upload.Item, f File) error {
	if f.Body == nil {
		return fmt.Errorf("no body for %s", it.Name)
	}
	data, err := io.ReadAll(io.LimitReader(f.Body, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("read %s: %w", it.Name, err)
	}

	if err := s.storage.Put(ctx, it.Handle, bytes.NewReader(data), storage.PutOptions{
		ContentType: it.ContentType,
		MaxSize:     s.maxBytes,
	}); err != nil {
		return err
	}

	if s.thumbs == nil {
		return nil
	}
	preview, _, _, err := s.thumbs.GenerateThumbnail(bytes.NewReader(data), PreviewMaxWidth, PreviewMaxHeight)
	if err != nil {
		s.logger.Debug("no preview for upload", "name", it.Name, "error", err)
		return nil
	}
	if err := s.storage.Put(ctx, storage.PreviewKey(it.Handle), bytes.NewReader(preview), storage.PutOptions{
		ContentType: "image/jpeg",
		Overwrite:   true,
	}); err != nil {
		s.logger.Warn("failed to store preview", "name", it.Name, "error", err)
	}
	return nil
}

// unstage deletes the bytes and previews of local items and releases
// their object URLs. Remote items are left alone.
func (s *UploadService) unstage(ctx context.Context, items []upload.Item) {
	for _, it := range items {
		if !it.IsLocal() {
			continue
		}
		s.urls.Release(it)
		if err := s.storage.Delete(ctx, it.Handle); err != nil {
			s.logger.Warn("failed to delete staged file", "key", it.Handle, "error", err)
		}
		if err := s.storage.Delete(ctx, storage.PreviewKey(it.Handle)); err != nil {
			s.logger.Warn("failed to delete preview", "key", it.Handle, "error", err)
		}
	}
}
