package google

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

//go:generate mockgen -source=drive.go -destination=mocks/mock_files.go -package=mocks

const (
	SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

	// Lookups are not paginated; the first page is enough to pick a target.
	lookupPageSize = 5
)

var (
	lookupFields   googleapi.Field = "files(id,name,mimeType,modifiedTime,webViewLink)"
	responseFields                 = []googleapi.Field{"id", "name", "webViewLink"}
)

// FileService is the subset of the Drive files API used for upserts.
type FileService interface {
	List(ctx context.Context, query string, pageSize int64) ([]*drive.File, error)
	Create(ctx context.Context, meta *drive.File, media io.Reader, mediaType string) (*drive.File, error)
	Update(ctx context.Context, fileID string, media io.Reader, mediaType string) (*drive.File, error)
}

type driveFiles struct {
	files *drive.FilesService
}

func NewDriveFiles(srv *drive.Service) FileService {
	return &driveFiles{files: srv.Files}
}

func (d *driveFiles) List(ctx context.Context, query string, pageSize int64) ([]*drive.File, error) {
	res, err := d.files.List().
		Q(query).
		Spaces("drive").
		Fields(lookupFields).
		PageSize(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

func (d *driveFiles) Create(ctx context.Context, meta *drive.File, media io.Reader, mediaType string) (*drive.File, error) {
	return d.files.Create(meta).
		Media(media, googleapi.ContentType(mediaType)).
		Fields(responseFields...).
		Context(ctx).
		Do()
}

func (d *driveFiles) Update(ctx context.Context, fileID string, media io.Reader, mediaType string) (*drive.File, error) {
	return d.files.Update(fileID, &drive.File{}).
		Media(media, googleapi.ContentType(mediaType)).
		Fields(responseFields...).
		Context(ctx).
		Do()
}

// lazyFiles defers building the Drive client until the first call, so a run
// that fails before storage never touches OAuth.
type lazyFiles struct {
	build func(ctx context.Context) (FileService, error)

	mu    sync.Mutex
	files FileService
}

// NewLazyFiles returns a FileService that calls build on first use and reuses
// the result. A failed build is retried on the next call.
func NewLazyFiles(build func(ctx context.Context) (FileService, error)) FileService {
	return &lazyFiles{build: build}
}

func (l *lazyFiles) get(ctx context.Context) (FileService, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.files != nil {
		return l.files, nil
	}
	files, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.files = files
	return files, nil
}

func (l *lazyFiles) List(ctx context.Context, query string, pageSize int64) ([]*drive.File, error) {
	files, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return files.List(ctx, query, pageSize)
}

func (l *lazyFiles) Create(ctx context.Context, meta *drive.File, media io.Reader, mediaType string) (*drive.File, error) {
	files, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return files.Create(ctx, meta, media, mediaType)
}

func (l *lazyFiles) Update(ctx context.Context, fileID string, media io.Reader, mediaType string) (*drive.File, error) {
	files, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return files.Update(ctx, fileID, media, mediaType)
}

// Payload is the content handed to Upsert.
type Payload struct {
	Data     []byte
	MimeType string
}

type StoredFile struct {
	ID          string
	Name        string
	WebViewLink string
	Created     bool
}

type Uploader struct {
	files FileService
}

func NewUploader(files FileService) *Uploader {
	return &Uploader{files: files}
}

// NameQuery builds the Drive search for non-trashed files called name,
// restricted to folderID when it is set.
func NameQuery(name, folderID string) string {
	parts := []string{
		"name = '" + escapeQuery(name) + "'",
		"trashed = false",
	}
	if folderID != "" {
		parts = append(parts, "'"+escapeQuery(folderID)+"' in parents")
	}
	return strings.Join(parts, " and ")
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// Lookup returns the non-trashed files named name, in the order Drive lists
// them.
func (u *Uploader) Lookup(ctx context.Context, name, folderID string) ([]*drive.File, error) {
	files, err := u.files.List(ctx, NameQuery(name, folderID), lookupPageSize)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to search Drive for %q", name)
	}
	return files, nil
}

// Upsert overwrites the content of the file called name in folderID, or
// creates it when no such file exists. targetFormat is only applied on
// create: Drive converts the upload (for example CSV to a Google Sheet) when
// a file is created and keeps the existing format on a content update.
// When several files share the name the first one listed is updated.
func (u *Uploader) Upsert(ctx context.Context, payload Payload, name, folderID, targetFormat string) (*StoredFile, error) {
	logger := zerolog.Ctx(ctx).With().Str("name", name).Str("folder", folderID).Logger()

	existing, err := u.Lookup(ctx, name, folderID)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		if len(existing) > 1 {
			ids := make([]string, 0, len(existing))
			for _, f := range existing {
				ids = append(ids, f.Id)
			}
			logger.Warn().Strs("ids", ids).Msg("multiple files share this name, updating the first")
		}

		target := existing[0]
		logger.Debug().Str("id", target.Id).Msg("updating existing file")

		updated, err := u.files.Update(ctx, target.Id, bytes.NewReader(payload.Data), payload.MimeType)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to update Drive file %s", target.Id)
		}
		return storedFile(updated, false), nil
	}

	meta := &drive.File{
		Name:     name,
		MimeType: targetFormat,
	}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	logger.Debug().Str("mimeType", targetFormat).Msg("creating file")

	created, err := u.files.Create(ctx, meta, bytes.NewReader(payload.Data), payload.MimeType)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create Drive file %q", name)
	}
	return storedFile(created, true), nil
}

func storedFile(f *drive.File, created bool) *StoredFile {
	if f == nil {
		return &StoredFile{Created: created}
	}
	return &StoredFile{
		ID:          f.Id,
		Name:        f.Name,
		WebViewLink: f.WebViewLink,
		Created:     created,
	}
}
