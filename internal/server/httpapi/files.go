package httpapi

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

const (
	fileField = "file"
	sizeField = "size"
)

// Upload streams the multipart "file" part into the ingest pipeline. An
// optional "size" field sent before the file declares its length.
func (h *Handler) Upload(c *gin.Context) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidFile, "Multipart form with a file is required")
		return
	}

	declared := int64(-1)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, CodeInvalidFile, "File is required")
			return
		}
		if err != nil {
			fail(c, http.StatusBadRequest, CodeInvalidFile, "Malformed multipart body")
			return
		}

		switch part.FormName() {
		case sizeField:
			raw, _ := io.ReadAll(io.LimitReader(part, 32))
			n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
			if err != nil || n < 0 {
				_ = part.Close()
				fail(c, http.StatusBadRequest, CodeValidation, "size must be a non-negative integer")
				return
			}
			declared = n
		case fileField:
			if part.FileName() == "" {
				_ = part.Close()
				fail(c, http.StatusBadRequest, CodeInvalidFile, "File is required")
				return
			}
			h.ingest(c, part.FileName(), part.Header.Get("Content-Type"), part, declared)
			_ = part.Close()
			return
		}
		_ = part.Close()
	}
}

func (h *Handler) ingest(c *gin.Context, name, contentType string, body io.Reader, declared int64) {
	obj, err := h.objects.Ingest(c.Request.Context(), services.IngestRequest{
		OwnerID:      currentUser(c),
		Body:         body,
		Name:         name,
		ContentType:  contentType,
		DeclaredSize: declared,
	})
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}
	ok(c, toFileResponse(obj), "File uploaded successfully")
}

func (h *Handler) GetFile(c *gin.Context) {
	id, valid := pathUUID(c, "id")
	if !valid {
		return
	}

	obj, err := h.objects.GetMetadata(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}
	ok(c, toFileResponse(obj), "File retrieved successfully")
}

// Download serves the object bytes. Range requests are honoured for both
// buffered and streamed objects.
func (h *Handler) Download(c *gin.Context) {
	id, valid := pathUUID(c, "id")
	if !valid {
		return
	}

	art, err := h.objects.Fetch(c.Request.Context(), id)
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}

	obj := art.Object
	c.Header("Content-Type", obj.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": obj.OriginalName}))

	if art.Stream != nil {
		defer art.Stream.Close()
		http.ServeContent(c.Writer, c.Request, obj.OriginalName, obj.UploadedAt, art.Stream)
		return
	}
	http.ServeContent(c.Writer, c.Request, obj.OriginalName, obj.UploadedAt, bytes.NewReader(art.Data))
}

func (h *Handler) DeleteFile(c *gin.Context) {
	id, valid := pathUUID(c, "id")
	if !valid {
		return
	}

	deleted, err := h.objects.Delete(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, CodeFileNotFound, "File not found")
		return
	}
	ok(c, nil, "File deleted successfully")
}

func (h *Handler) MyFiles(c *gin.Context) {
	objs, err := h.objects.ListByOwner(c.Request.Context(), currentUser(c))
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}

	out := make([]*FileResponse, 0, len(objs))
	for _, o := range objs {
		out = append(out, toFileResponse(o))
	}
	ok(c, out, "Files retrieved successfully")
}

// pathUUID reads a uuid path parameter, replying 400 when it is malformed.
func pathUUID(c *gin.Context, name string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, name+" must be a valid uuid")
		return "", false
	}
	return id.String(), true
}
