// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrAnalysisFailed is returned when document type detection yields nothing.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrStale marks an analysis result superseded by a newer run or note switch.
	ErrStale      = errors.New("stale analysis")
	ErrNoAnalysis = errors.New("note has not been analyzed")
)
