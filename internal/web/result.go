package web

import (
	"context"
	"fmt"
	"time"

	"covertype/internal/features"
	"covertype/internal/ml"
	"covertype/internal/storage"
)

// Result is the rendered form of an outcome, shared by the page, the JSON
// API and the websocket.
type Result struct {
	ID    string                `json:"id"`
	Label string                `json:"label,omitempty"`
	Top   []ml.ClassProbability `json:"top,omitempty"`
	Error string                `json:"error,omitempty"`
	Stage string                `json:"stage,omitempty"`
}

func newResult(out ml.Outcome) Result {
	r := Result{ID: out.ID}
	if out.Err != nil {
		r.Error = out.Err.Err.Error()
		r.Stage = string(out.Err.Stage)
		return r
	}
	r.Label = out.Prediction.Label
	r.Top = out.Prediction.Top
	return r
}

// Failed reports whether the result is an error.
func (r Result) Failed() bool { return r.Error != "" }

// Message is the user-facing error line.
func (r Result) Message() string {
	return "Prediction error: " + r.Error
}

func percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// evaluate assembles in and runs the pipeline. Assembly errors become
// failed outcomes; nothing here returns an error.
func (s *Server) evaluate(ctx context.Context, source string, in features.Input) ml.Outcome {
	return s.finish(source, in, s.assemble(ctx, in))
}

func (s *Server) assemble(ctx context.Context, in features.Input) ml.Outcome {
	vec, err := s.assets.Form.Assemble(in)
	if err != nil {
		return s.pipeline.Reject(err)
	}
	return s.pipeline.Run(ctx, vec.Values())
}

// finish records out in the history and returns it unchanged.
func (s *Server) finish(source string, in features.Input, out ml.Outcome) ml.Outcome {
	s.record(source, storage.NewRecord(source, in, out, time.Now()))
	return out
}
