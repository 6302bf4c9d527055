package batch

import (
	"context"
	"errors"

	"github.com/filestructor/structor/internal/models"
)

// State is the run state of an Orchestrator.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	// StateStopped is held between a stop request and the loop reaching its
	// next checkpoint.
	StateStopped State = "stopped"
)

var (
	ErrNoFiles         = errors.New("no files imported")
	ErrAlreadyRunning  = errors.New("batch is already running")
	ErrIndexOutOfRange = errors.New("item index out of range")
	ErrBatchReplaced   = errors.New("batch was cleared while the item was in flight")
)

// Request is what the naming oracle receives for one file.
type Request struct {
	File    models.ImportedFile
	Hint    models.NamingHint
	Preview []byte // PNG, optional
}

// Oracle suggests a raw title for one file. The returned text is untrusted.
type Oracle interface {
	Suggest(ctx context.Context, req Request) (string, error)
}

// Previewer supplies a rasterized preview for files that have one.
// A nil slice with a nil error means no preview.
type Previewer interface {
	Preview(ctx context.Context, f models.ImportedFile) ([]byte, error)
}

// Releaser is implemented by previewers holding resources that Clear frees.
type Releaser interface {
	Release()
}

// EventKind identifies an orchestrator event.
type EventKind string

const (
	EventItemStarted   EventKind = "item_started"
	EventItemOK        EventKind = "item_ok"
	EventItemError     EventKind = "item_error"
	EventBatchFinished EventKind = "batch_finished"
)

// Event reports progress to an observer.
type Event struct {
	Kind     EventKind
	Index    int
	Name     string
	Title    string
	Err      error
	Progress int
}

// ItemView is the externally visible state of one item.
type ItemView struct {
	Index     int               `json:"index"`
	Name      string            `json:"name"`
	Kind      models.Kind       `json:"kind"`
	Status    models.ItemStatus `json:"status"`
	Title     string            `json:"title,omitempty"`
	FinalName string            `json:"final_name,omitempty"`
}

// Snapshot is a consistent copy of the orchestrator state.
type Snapshot struct {
	State     State      `json:"state"`
	Paused    bool       `json:"paused"`
	Progress  int        `json:"progress"`
	Processed int        `json:"processed"`
	Renamed   int        `json:"renamed"`
	Total     int        `json:"total"`
	Items     []ItemView `json:"items"`
}
