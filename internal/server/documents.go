package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/price-intel/internal/async"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/extract"
)

const (
	formFiles  = "files"
	formRegion = "region"
	memLimit   = 32 << 20
)

type jobAccepted struct {
	JobID string `json:"job_id"`
	Files int    `json:"files"`
}

// uploadDocuments accepts a multipart batch under the "files" field. With
// ?async=true the batch is queued and a job id is returned.
func (s *Server) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingestor == nil {
		s.writeError(w, r, common.NewDependencyError("no generation backend configured", nil))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(memLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, common.NewValidationError("upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", err))
			return
		}
		s.writeError(w, r, common.NewValidationError("expected multipart/form-data", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docs, err := readParts(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	region := strings.TrimSpace(r.FormValue(formRegion))

	if queued, _ := strconv.ParseBool(r.URL.Query().Get("async")); queued {
		s.enqueue(w, r, docs, region)
		return
	}

	res, err := s.deps.Ingestor.ProcessBatch(r.Context(), docs, region)
	if err != nil {
		s.writeError(w, r, common.NewInternalError("batch interrupted", err))
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, docs []extract.Document, region string) {
	if s.deps.Queue == nil {
		s.writeError(w, r, common.NewValidationError("asynchronous ingestion is not enabled", common.ErrInvalidInput))
		return
	}
	id, err := s.deps.Queue.Enqueue(r.Context(), async.Job{
		Documents:  docs,
		RegionHint: region,
		TraceID:    common.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/jobs/"+id)
	writeSuccess(w, http.StatusAccepted, jobAccepted{JobID: id, Files: len(docs)})
}

func readParts(r *http.Request) ([]extract.Document, error) {
	headers := r.MultipartForm.File[formFiles]
	if len(headers) == 0 {
		return nil, common.NewValidationError("no files uploaded under \""+formFiles+"\"", common.ErrInvalidInput)
	}
	docs := make([]extract.Document, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, common.NewValidationError("reading upload "+fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, common.NewValidationError("reading upload "+fh.Filename, err)
		}
		docs = append(docs, extract.Document{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return docs, nil
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		s.writeError(w, r, common.NewNotFoundError("job not found"))
		return
	}
	st, ok := s.deps.Queue.Status(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, r, common.NewNotFoundError("job not found"))
		return
	}
	writeSuccess(w, http.StatusOK, st)
}
