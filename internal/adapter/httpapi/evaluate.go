package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/guillermoBallester/dqscore/internal/adapter/file"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/guillermoBallester/dqscore/internal/core/service"
)

const uploadField = "file"

const (
	msgNoFile      = "No file provided"
	msgNoFileName  = "No file selected"
	msgNotAllowed  = "File type not allowed. Please upload CSV, Excel, JSON, or Parquet files."
	msgTooLarge    = "File too large"
	msgInternal    = "assessment failed: internal error (check server logs)"
	msgTimedOut    = "assessment timed out"
	evaluateToolID = "evaluate"
)

// evaluateHandler assesses the multipart upload in field "file". The part is
// streamed straight into the loader; nothing is written to disk.
func evaluateHandler(svc *service.AssessmentService, maxBytes int64, logger *slog.Logger, inst port.Instrumentation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			inst.RecordToolDuration(r.Context(), float64(time.Since(start).Milliseconds()))
		}()

		if maxBytes > 0 {
			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge, msgTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		part, err := uploadPart(r)
		if err != nil {
			status, msg := uploadError(err)
			writeError(w, r, status, msg)
			return
		}
		defer func() { _ = part.Close() }()

		name := part.FileName()
		if name == "" {
			writeError(w, r, http.StatusBadRequest, msgNoFileName)
			return
		}
		if !file.Allowed(name) {
			writeError(w, r, http.StatusBadRequest, msgNotAllowed)
			return
		}

		ctx := service.WithToolName(r.Context(), evaluateToolID)
		a, err := svc.AssessFile(ctx, name, part)
		if err != nil {
			status, msg := assessError(logger, err)
			writeError(w, r, status, msg)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, a)
	}
}

var errNoFilePart = errors.New("no file part")

// uploadPart advances the multipart body to the part named "file".
func uploadPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errNoFilePart
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		_ = part.Close()
	}
}

func uploadError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, msgTooLarge
	}
	return http.StatusBadRequest, msgNoFile
}

// assessError maps an assessment failure to a status and a message that is
// safe to return to the client.
func assessError(logger *slog.Logger, err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case domain.IsInputError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, msgTimedOut
	}
	logger.Error("assessment failed", slog.String("error", err.Error()))
	return http.StatusInternalServerError, msgInternal
}
