package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"turbott/internal/app"
	"turbott/internal/config"
	"turbott/internal/loader"
	"turbott/internal/pkg/docxextract"
	"turbott/internal/pkg/pdfextract"
	"turbott/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	indexService *app.IndexService
	docsDir      string
}

func NewDocumentHandler(indexService *app.IndexService, docsCfg config.DocsConfig) *DocumentHandler {
	return &DocumentHandler{
		indexService: indexService,
		docsDir:      docsCfg.Dir,
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	response.OK(c, h.indexService.ListDocuments())
}

// Upload accepts a multipart form with "file" (pdf, docx or txt), extracts
// the text synchronously so format errors surface to the client, then hands
// the document to the index worker.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	var text string
	var format string
	switch ext {
	case ".pdf":
		format = "pdf"
		text, err = pdfextract.ExtractText(f)
	case ".docx":
		format = "docx"
		text, err = docxextract.ExtractText(f)
	case ".txt":
		format = "txt"
		var raw []byte
		raw, err = io.ReadAll(f)
		text = string(raw)
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unsupported file type: "+ext)
		return
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text: "+err.Error())
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file contains no extractable text")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = file.Filename
	}

	status, err := h.indexService.EnqueueText(c.Request.Context(), name, format, text)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "enqueue ingest failed: "+err.Error())
		}
		return
	}
	response.OK(c, status)
}

// Reindex drops the store and rebuilds it from the configured documents
// directory, returning the batch report.
func (h *DocumentHandler) Reindex(c *gin.Context) {
	report, err := h.indexService.Reindex(c.Request.Context(), h.docsDir)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedFormat) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reindex failed: "+err.Error())
		return
	}
	response.OK(c, report)
}
