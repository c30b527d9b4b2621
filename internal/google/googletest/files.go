// Package googletest provides an in-memory Drive file store for tests.
package googletest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"google.golang.org/api/drive/v3"

	"github.com/digitaldrywood/timeexport/internal/google"
)

type File struct {
	ID        string
	Name      string
	MimeType  string
	Parents   []string
	Content   []byte
	MediaType string
	Trashed   bool
}

// MemoryFiles implements google.FileService. It answers the queries built by
// google.NameQuery and returns files in creation order.
type MemoryFiles struct {
	mu      sync.Mutex
	files   []*File
	nextID  int
	Creates int
	Updates int
	Lists   int
}

var _ google.FileService = (*MemoryFiles)(nil)

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{}
}

// Seed stores a file without counting it as a create.
func (m *MemoryFiles) Seed(f File) *File {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == "" {
		f.ID = m.newID()
	}
	stored := f
	m.files = append(m.files, &stored)
	return &stored
}

func (m *MemoryFiles) Get(id string) (*File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.files {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Named returns the non-trashed files called name, limited to folderID when
// it is set.
func (m *MemoryFiles) Named(name, folderID string) []*File {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*File
	for _, f := range m.files {
		if f.Trashed || f.Name != name {
			continue
		}
		if folderID != "" && !contains(f.Parents, folderID) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (m *MemoryFiles) List(ctx context.Context, query string, pageSize int64) ([]*drive.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++

	var out []*drive.File
	for _, f := range m.files {
		if f.Trashed || !matches(f, query) {
			continue
		}
		out = append(out, toDrive(f))
		if pageSize > 0 && int64(len(out)) == pageSize {
			break
		}
	}
	return out, nil
}

func (m *MemoryFiles) Create(ctx context.Context, meta *drive.File, media io.Reader, mediaType string) (*drive.File, error) {
	content, err := io.ReadAll(media)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++

	mimeType := meta.MimeType
	if mimeType == "" {
		mimeType = mediaType
	}
	f := &File{
		ID:        m.newID(),
		Name:      meta.Name,
		MimeType:  mimeType,
		Parents:   append([]string(nil), meta.Parents...),
		Content:   content,
		MediaType: mediaType,
	}
	m.files = append(m.files, f)
	return toDrive(f), nil
}

func (m *MemoryFiles) Update(ctx context.Context, fileID string, media io.Reader, mediaType string) (*drive.File, error) {
	content, err := io.ReadAll(media)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++

	for _, f := range m.files {
		if f.ID == fileID {
			f.Content = content
			f.MediaType = mediaType
			return toDrive(f), nil
		}
	}
	return nil, fmt.Errorf("file %s not found", fileID)
}

func (m *MemoryFiles) newID() string {
	m.nextID++
	return fmt.Sprintf("file-%d", m.nextID)
}

func matches(f *File, query string) bool {
	if query == google.NameQuery(f.Name, "") {
		return true
	}
	for _, p := range f.Parents {
		if query == google.NameQuery(f.Name, p) {
			return true
		}
	}
	return false
}

func toDrive(f *File) *drive.File {
	return &drive.File{
		Id:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Parents:     append([]string(nil), f.Parents...),
		WebViewLink: "https://docs.google.com/d/" + f.ID,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
