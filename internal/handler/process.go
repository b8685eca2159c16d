// Package handler provides the HTTP handlers of the video processing service.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ai-teammate/video-processing-service/internal/event"
	"github.com/ai-teammate/video-processing-service/internal/middleware"
	"github.com/ai-teammate/video-processing-service/internal/pipeline"
)

// Processor runs one job per notification. It is satisfied by
// *pipeline.Processor and allows tests to inject a mock.
type Processor interface {
	Process(ctx context.Context, source string) (pipeline.Result, error)
}

// Response bodies.
const (
	msgBadRequest = "bad request: file name missing"
	msgFailed     = "processing failed"
	msgSucceeded  = "processing finished successfully"
)

// ProcessResponse is the JSON body returned by the process endpoint.
type ProcessResponse struct {
	Message string `json:"message,omitempty"`
	Object  string `json:"object,omitempty"`
	Error   string `json:"error,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// NewProcessHandler returns an http.HandlerFunc for POST /process-video.
//
// The body is a push-subscription envelope whose data decodes to
// {"name": "<object>"}. A malformed envelope is rejected with 400 before any
// I/O happens. Pipeline failures map to 500 and name the failing stage.
// Cleanup failures are never reported to the caller.
func NewProcessHandler(p Processor, logger *zap.Logger, maxBody int64) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFromContext(r.Context(), logger)

		if maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		n, err := event.Decode(r.Body)
		if err != nil {
			log.Warn("rejecting notification", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, ProcessResponse{Error: msgBadRequest})
			return
		}
		if n.Bucket != "" {
			log.Debug("notification names a bucket, using the configured source bucket",
				zap.String("bucket", n.Bucket))
		}

		res, err := p.Process(r.Context(), n.Name)
		if err != nil {
			stage := res.Stage
			if s, ok := pipeline.FailedStage(err); ok {
				stage = s
			}
			log.Error("processing failed",
				zap.String("source", n.Name),
				zap.String("stage", string(stage)),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ProcessResponse{Error: msgFailed, Stage: string(stage)})
			return
		}
		writeJSON(w, http.StatusOK, ProcessResponse{Message: msgSucceeded, Object: res.Job.Target})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
