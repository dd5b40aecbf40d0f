package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"saasan/internal/middleware"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
)

const evidenceFormField = "files"

type EvidenceHandler struct {
	evidence *services.EvidenceService
	maxBytes int64
	maxFiles int
}

func NewEvidenceHandler(evidence *services.EvidenceService, maxBytes int64, maxFiles int) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence, maxBytes: maxBytes, maxFiles: maxFiles}
}

// Upload 上传证据文件 (multipart, 字段名 files)
func (h *EvidenceHandler) Upload(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	// whole-request cap: every file at its limit plus form overhead
	limit := h.maxBytes*int64(h.maxFiles) + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	form, err := c.MultipartForm()
	if err != nil {
		middleware.AbortError(c, http.StatusBadRequest, "VALIDATION_ERROR", "expected a multipart form within the upload size limit")
		return
	}

	headers := form.File[evidenceFormField]
	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			RespondError(c, fmt.Errorf("open upload %q: %w", fh.Filename, err))
			return
		}
		// read one byte past the limit so the service can reject oversize files
		data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
		f.Close()
		if err != nil {
			RespondError(c, fmt.Errorf("read upload %q: %w", fh.Filename, err))
			return
		}
		files = append(files, services.UploadFile{Name: filepath.Base(fh.Filename), Data: data})
	}

	evidence, err := h.evidence.Upload(c.Request.Context(), c.Param("id"), files, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"evidence": evidence})
}

func (h *EvidenceHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.evidence.Delete(c.Request.Context(), c.Param("id"), c.Param("evidenceId"), a); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
