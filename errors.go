package docviz

import (
	"errors"

	"github.com/docviz-io/docviz/orchestrate"
)

var (
	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("docviz: document not found")

	// ErrFragmentNotFound is returned when a source fragment ID does not exist.
	ErrFragmentNotFound = errors.New("docviz: source fragment not found")

	// ErrGenerationFailed is returned when the generative-model call for a
	// conversation turn fails. The apology transcript entry has already been
	// persisted by the time this is returned.
	ErrGenerationFailed = orchestrate.ErrGenerationFailed

	// ErrTurnCancelled is returned when an in-flight conversation turn is
	// cancelled. Distinct from ErrGenerationFailed: the cancellation notice
	// has been persisted and the markup is untouched.
	ErrTurnCancelled = orchestrate.ErrCancelled

	// ErrNoVisualization is returned when a table operation is requested for
	// a document that has no rendered markup yet.
	ErrNoVisualization = errors.New("docviz: document has no visualization")

	// ErrTableNotFound is returned when neither the structural pass nor the
	// model fallback could produce the requested table.
	ErrTableNotFound = errors.New("docviz: no extractable table")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("docviz: invalid configuration")
)
