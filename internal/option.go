package internal

import (
	"io"

	"github.com/starford/orrery/internal/ai"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	generator ai.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream. The MCP server needs this,
// since stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithGenerator replaces the OpenAI-compatible client used for analysis.
func WithGenerator(g ai.Generator) Option {
	return func(a *application) {
		a.generator = g
	}
}
