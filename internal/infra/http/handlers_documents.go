package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"docsign/internal/domain"
	"docsign/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNoFile = errors.New("no file uploaded")

func (s *Server) handleUploadDocument(c *gin.Context) {
	filename, content, err := s.readFormFile(c, "file")
	if err != nil {
		s.writeUploadError(c, err, "No file uploaded")
		return
	}
	doc, err := s.documents.Upload(c.Request.Context(), usecase.UploadInput{
		Principal: getPrincipal(c),
		Filename:  filename,
		Content:   content,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusCreated, buildDocumentResponse(doc), "Document uploaded successfully")
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.documents.List(c.Request.Context(), getPrincipal(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, buildDocumentResponse(doc))
	}
	writeSuccess(c, http.StatusOK, out, "Documents fetched successfully")
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := s.documents.Get(c.Request.Context(), getPrincipal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, buildDocumentResponse(doc), "Document fetched successfully")
}

func (s *Server) handleDocumentFile(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, body, err := s.documents.Open(c.Request.Context(), getPrincipal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			s.log.Warn("close document stream", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}()
	size := doc.FileSize
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, domain.PDFMimeType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", doc.Filename),
	})
}

func (s *Server) handleDocumentURL(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, url, err := s.documents.URL(c.Request.Context(), getPrincipal(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, documentURLResponse{
		URL:      url,
		Filename: doc.Filename,
		FileSize: doc.FileSize,
	}, "Document URL fetched successfully")
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := s.documents.Delete(c.Request.Context(), getPrincipal(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, gin.H{}, "Document deleted successfully")
}

func (s *Server) handleReplaceSigned(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	filename, content, err := s.readFormFile(c, "file")
	if err != nil {
		s.writeUploadError(c, err, "No file uploaded")
		return
	}
	doc, err := s.documents.ReplaceSigned(c.Request.Context(), usecase.ReplaceSignedInput{
		Principal:  getPrincipal(c),
		DocumentID: id,
		Filename:   filename,
		Content:    content,
		IP:         c.ClientIP(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, buildDocumentResponse(doc), "Signed document uploaded successfully")
}

// readFormFile reads one multipart file, bounded by the upload limit.
func (s *Server) readFormFile(c *gin.Context, field string) (string, []byte, error) {
	limit := s.maxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	header, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, err
		}
		return "", nil, errNoFile
	}
	if header.Size > limit {
		return "", nil, &http.MaxBytesError{Limit: limit}
	}
	content, err := readMultipart(header, limit)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, content, nil
}

func readMultipart(header *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return content, nil
}

func (s *Server) writeUploadError(c *gin.Context, err error, missing string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "File exceeds the upload limit",
			fmt.Sprintf("maximum size is %d bytes", s.maxUploadBytes()))
	case errors.Is(err, errNoFile):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", missing)
	default:
		s.writeError(c, err)
	}
}
