package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"harmonia/internal/media"
)

const maxUploadSizeBytes = 10 << 20

const (
	mediaFolderUsers     = "harmonia/users"
	mediaFolderArtists   = "harmonia/artists"
	mediaFolderAlbums    = "harmonia/albums"
	mediaFolderSongs     = "harmonia/songs"
	mediaFolderPlaylists = "harmonia/playlists"
)

var (
	audioContentTypes = map[string]bool{
		"audio/mpeg": true,
		"audio/wav":  true,
	}
	imageContentTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/jpg":  true,
	}
)

// stagedFile is a multipart file spooled to disk, waiting for the media
// host push that will also remove it.
type stagedFile struct {
	tempPath     string
	originalName string
	contentType  string
	size         int64
}

// uploadForm holds the decoded fields of a multipart request. Staged files
// that are never handed to the uploader must be discarded by the caller.
type uploadForm struct {
	values map[string]string
	files  map[string]*stagedFile
}

func (f *uploadForm) value(name string) string {
	if f == nil {
		return ""
	}
	return f.values[name]
}

func (f *uploadForm) file(name string) *stagedFile {
	if f == nil {
		return nil
	}
	return f.files[name]
}

// discard removes every staged temp file that was not consumed.
func (f *uploadForm) discard() {
	if f == nil {
		return
	}
	for name, file := range f.files {
		if file == nil {
			continue
		}
		_ = os.Remove(file.tempPath)
		delete(f.files, name)
	}
}

// uploadFile pushes one staged file to the media host and marks it
// consumed. The uploader owns temp removal from here on.
func (f *uploadForm) uploadFile(ctx context.Context, uploader media.Uploader, field, folder string) (string, error) {
	file := f.file(field)
	if file == nil {
		return "", nil
	}
	delete(f.files, field)
	if uploader == nil {
		_ = os.Remove(file.tempPath)
		return "", fmt.Errorf("media uploads are not configured")
	}
	return uploader.Upload(ctx, media.FileUpload{
		LocalPath:   file.tempPath,
		Folder:      folder,
		Filename:    file.originalName,
		ContentType: file.contentType,
	})
}

// fileFieldSpec maps a multipart file field to its accepted content types.
type fileFieldSpec map[string]map[string]bool

// parseUploadForm streams the multipart body, spooling accepted file fields
// to temp files and collecting the remaining fields as trimmed strings.
// On error every staged file is removed before returning.
func parseUploadForm(r *http.Request, fields fileFieldSpec) (*uploadForm, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart payload")
	}
	form := &uploadForm{
		values: make(map[string]string),
		files:  make(map[string]*stagedFile),
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			form.discard()
			return nil, fmt.Errorf("read multipart data: %w", err)
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		if allowed, ok := fields[name]; ok {
			if form.files[name] != nil {
				_ = part.Close()
				continue
			}
			staged, saveErr := saveMultipartFile(part, allowed)
			if saveErr != nil {
				form.discard()
				return nil, saveErr
			}
			form.files[name] = staged
			continue
		}
		payload, readErr := io.ReadAll(io.LimitReader(part, maxUploadSizeBytes))
		_ = part.Close()
		if readErr != nil {
			form.discard()
			return nil, fmt.Errorf("read form field: %w", readErr)
		}
		form.values[name] = strings.TrimSpace(string(payload))
	}
	return form, nil
}

func saveMultipartFile(part *multipart.Part, allowed map[string]bool) (*stagedFile, error) {
	defer part.Close()
	contentType := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Type")))
	if base, _, found := strings.Cut(contentType, ";"); found {
		contentType = strings.TrimSpace(base)
	}
	if !allowed[contentType] {
		return nil, fmt.Errorf("unsupported content type %q for field %s", contentType, part.FormName())
	}
	tmp, err := os.CreateTemp("", "harmonia-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()
	written, err := io.Copy(tmp, io.LimitReader(part, maxUploadSizeBytes+1))
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if written > maxUploadSizeBytes {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("file exceeds the %d byte limit", maxUploadSizeBytes)
	}
	return &stagedFile{
		tempPath:     tmp.Name(),
		originalName: part.FileName(),
		contentType:  contentType,
		size:         written,
	}, nil
}

func isMultipart(r *http.Request) bool {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	return strings.HasPrefix(contentType, "multipart/form-data")
}
