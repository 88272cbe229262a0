package committee

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/blob"
	"github.com/wa-psh/committee/content"
)

const (
	maxUploadSize   = 10 << 20 // 10MB
	documentsPrefix = "documents/files/"
)

// allowedDocumentTypes are the MIME types accepted for document uploads.
var allowedDocumentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain":      true,
	"application/rtf": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type uploadResult struct {
	Filename     string            `json:"filename"`
	OriginalName string            `json:"originalName"`
	Size         int64             `json:"size"`
	FileSize     string            `json:"fileSize"`
	MIMEType     string            `json:"mimetype"`
	BlobURL      *string           `json:"blobUrl"`
	Document     *content.Document `json:"document,omitempty"`
}

// uniqueFilename keeps the extension of name, replaces unsafe characters in
// the rest and appends the upload time and a random suffix.
func (a *App) uniqueFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "document"
	}
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%s_%d_%d%s", base, a.now().UnixMilli(), rand.IntN(1000), ext)
}

// uploadType is the declared MIME type of an upload, falling back to its
// extension when the client sent none.
func uploadType(header, filename string) string {
	ctype, _, err := mime.ParseMediaType(header)
	if err != nil || ctype == "" || ctype == echo.MIMEOctetStream {
		ctype, _, _ = mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(filename)))
	}
	return strings.ToLower(ctype)
}

// handleDocumentUpload stores an uploaded file in the object store. When a
// title is posted with the file a document record is created for it.
func (a *App) handleDocumentUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest("No file uploaded")
	}
	if file.Size > maxUploadSize {
		return badRequest("File too large (max 10MB)")
	}
	ctype := uploadType(file.Header.Get(echo.HeaderContentType), file.Filename)
	if !allowedDocumentTypes[ctype] {
		return badRequest("Invalid file type. Allowed types: PDF, Word, Excel, PowerPoint, Text, RTF")
	}

	result := uploadResult{
		Filename:     a.uniqueFilename(file.Filename),
		OriginalName: file.Filename,
		Size:         file.Size,
		FileSize:     humanize.Bytes(uint64(file.Size)),
		MIMEType:     ctype,
	}

	if a.Objects == nil {
		c.Logger().Warn("upload: object store not configured, file not persisted")
		return c.JSON(http.StatusOK, response{
			Success: true,
			Message: "File processed (object store not configured - file not persisted)",
			Warning: "To enable file uploads, configure an object store (BLOB_READ_WRITE_TOKEN, BLOB_SQLITE_PATH or REDIS_URL)",
			Data:    result,
		})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	ctx := c.Request().Context()
	obj, err := a.Objects.Put(ctx, documentsPrefix+result.Filename, data, ctype)
	if err != nil {
		return fmt.Errorf("upload %s: %w", result.Filename, err)
	}
	result.BlobURL = &obj.URL
	c.Logger().Infof("upload: stored %s (%s)", obj.Key, result.FileSize)

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return ok(c, http.StatusOK, result, "File uploaded successfully")
	}
	doc, durable := a.Documents.Add(ctx, content.Document{
		Title:       title,
		Description: strings.TrimSpace(c.FormValue("description")),
		Category:    strings.TrimSpace(c.FormValue("category")),
		Filename:    result.Filename,
		FileSize:    result.FileSize,
		BlobURL:     obj.URL,
	})
	a.documentCache.Invalidate()
	result.Document = &doc
	return written(c, http.StatusCreated, result, "File uploaded successfully", durable)
}

// documentBlobKey is the object store key of an uploaded document, or "" for
// documents served as static files.
// Keys that escape documents/files/ after cleaning are rejected.
func documentBlobKey(d content.Document) string {
	i := strings.Index(d.BlobURL, documentsPrefix)
	if i < 0 {
		return ""
	}
	key := path.Clean(d.BlobURL[i:])
	if !strings.HasPrefix(key, documentsPrefix) || len(key) == len(documentsPrefix) {
		return ""
	}
	return key
}

// deleteDocumentFile removes the uploaded file of a deleted document. A
// failure is logged and leaves the file orphaned.
func (a *App) deleteDocumentFile(ctx context.Context, d content.Document) {
	key := documentBlobKey(d)
	if key == "" || a.Objects == nil {
		return
	}
	if err := a.Objects.Delete(ctx, key); err != nil {
		a.Echo.Logger.Warnf("document %s: delete file %s: %v", d.ID, key, err)
	}
}

// storedFile is an object under documents/files/ and the document that
// links to it, if any.
type storedFile struct {
	Key        string     `json:"key"`
	Filename   string     `json:"filename"`
	DocumentID content.ID `json:"documentId,omitempty"`
	Orphaned   bool       `json:"orphaned"`
}

// handleDocumentFiles lists uploaded files and flags those no document
// references, such as files left behind by a failed delete.
func (a *App) handleDocumentFiles(c echo.Context) error {
	lister, listable := a.Objects.(blob.Lister)
	if !listable {
		return ok(c, http.StatusOK, []storedFile{}, "Object store cannot list files")
	}
	ctx := c.Request().Context()
	keys, err := lister.Keys(ctx, documentsPrefix)
	if err != nil {
		return fmt.Errorf("list document files: %w", err)
	}

	owners := make(map[string]content.ID)
	for _, d := range a.Documents.All(ctx) {
		if key := documentBlobKey(d); key != "" {
			owners[key] = d.ID
		}
	}
	out := make([]storedFile, 0, len(keys))
	for _, k := range keys {
		id, linked := owners[k]
		out = append(out, storedFile{
			Key:        k,
			Filename:   strings.TrimPrefix(k, documentsPrefix),
			DocumentID: id,
			Orphaned:   !linked,
		})
	}
	return ok(c, http.StatusOK, out, "")
}
