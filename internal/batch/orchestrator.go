// Package batch drives imported files, one at a time, through the naming
// oracle under start, pause and stop control.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/filestructor/structor/internal/export"
	"github.com/filestructor/structor/internal/models"
	"github.com/filestructor/structor/internal/naming"
)

type item struct {
	file   models.ImportedFile
	status models.ItemStatus
	title  string
	// ok is set while the item counts towards renamed. A failed retry
	// clears it but keeps title for export.
	ok bool
}

// Orchestrator owns one batch: its files, per-item statuses, the titles issued
// so far and the run state. All methods are safe for concurrent use.
type Orchestrator struct {
	oracle    Oracle
	previewer Previewer
	policy    naming.Policy
	observer  func(Event)

	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	active bool   // a loop goroutine owns the batch
	gen    uint64 // bumped by every start, load and clear
	items  []item
	used   naming.UsedSet

	processed int
	renamed   int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreviewer sets the preview source passed to the oracle.
func WithPreviewer(p Previewer) Option {
	return func(o *Orchestrator) { o.previewer = p }
}

// WithObserver registers a callback for progress events. It is called without
// internal locks held and may call back into the Orchestrator.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// New returns an idle Orchestrator with an empty batch.
func New(oracle Oracle, policy naming.Policy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		oracle: oracle,
		policy: policy,
		state:  StateIdle,
		used:   naming.NewUsedSet(),
	}
	o.cond = sync.NewCond(&o.mu)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the naming policy of this batch.
func (o *Orchestrator) Policy() naming.Policy { return o.policy }

// Load replaces the batch with files. Files are re-indexed by position.
func (o *Orchestrator) Load(files []models.ImportedFile) {
	o.Clear()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = make([]item, len(files))
	for i, f := range files {
		f.Index = i
		o.items[i] = item{file: f, status: models.ItemStatus{State: models.StatusPending}}
	}
}

// Run starts the batch and blocks until the loop ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	gen, err := o.begin()
	if err != nil {
		return err
	}
	o.loop(ctx, gen)
	return nil
}

// Start starts the batch in its own goroutine. The returned channel is closed
// when the loop ends.
func (o *Orchestrator) Start(ctx context.Context) (<-chan struct{}, error) {
	gen, err := o.begin()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.loop(ctx, gen)
	}()
	return done, nil
}

func (o *Orchestrator) begin() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.items) == 0 {
		return 0, ErrNoFiles
	}
	if o.active {
		return 0, ErrAlreadyRunning
	}

	o.gen++
	o.active = true
	o.state = StateRunning
	o.processed = 0
	o.renamed = 0
	o.used = naming.NewUsedSet()
	for i := range o.items {
		o.items[i].status = models.ItemStatus{State: models.StatusPending}
		o.items[i].title = ""
		o.items[i].ok = false
	}

	slog.Info("Batch started", "files", len(o.items), "policy", o.policy.Name)
	return o.gen, nil
}

func (o *Orchestrator) loop(ctx context.Context, gen uint64) {
	// wake a paused loop when ctx is cancelled
	stopWake := context.AfterFunc(ctx, func() {
		o.mu.Lock()
		o.cond.Broadcast()
		o.mu.Unlock()
	})
	defer stopWake()

	for i := 0; ; i++ {
		f, ok := o.checkpoint(ctx, gen, i)
		if !ok {
			break
		}
		o.emit(Event{Kind: EventItemStarted, Index: i, Name: f.Name})

		normalized, err := o.suggest(ctx, f)

		ev, keep := o.commit(ctx, gen, i, normalized, err, true)
		if !keep {
			break
		}
		o.emit(ev)
	}

	o.mu.Lock()
	var progress, renamed int
	if o.gen == gen {
		o.state = StateIdle
		o.active = false
		progress = o.progressLocked()
		renamed = o.renamed
	}
	o.cond.Broadcast()
	o.mu.Unlock()

	slog.Info("Batch finished", "renamed", renamed, "progress", progress)
	o.emit(Event{Kind: EventBatchFinished, Index: -1, Progress: progress})
}

// checkpoint blocks while paused and reports whether item i should be
// processed. On true, the item is marked in flight.
func (o *Orchestrator) checkpoint(ctx context.Context, gen uint64, i int) (models.ImportedFile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for {
		if o.gen != gen || ctx.Err() != nil || i >= len(o.items) {
			return models.ImportedFile{}, false
		}
		switch o.state {
		case StatePaused:
			o.cond.Wait()
		case StateRunning:
			o.items[i].status = models.ItemStatus{State: models.StatusRenaming}
			return o.items[i].file, true
		default:
			return models.ImportedFile{}, false
		}
	}
}

// suggest asks the oracle for f and normalizes the answer.
func (o *Orchestrator) suggest(ctx context.Context, f models.ImportedFile) (string, error) {
	hint := naming.Hint(f)
	req := Request{File: f, Hint: hint}

	if o.previewer != nil {
		preview, err := o.previewer.Preview(ctx, f)
		if err != nil {
			slog.Warn("Preview unavailable", "name", f.Name, "error", err)
		} else {
			req.Preview = preview
		}
	}

	raw, err := o.oracle.Suggest(ctx, req)
	if err != nil {
		return "", err
	}
	return naming.Normalize(raw, hint.Words, o.policy), nil
}

// commit records the outcome for item i. It reports false when the result
// was discarded because the batch was stopped, cancelled or replaced.
func (o *Orchestrator) commit(ctx context.Context, gen uint64, i int, normalized string, suggestErr error, counted bool) (Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != gen || i >= len(o.items) {
		return Event{}, false
	}
	it := &o.items[i]
	if counted && (o.state == StateStopped || ctx.Err() != nil) {
		it.status = models.ItemStatus{State: models.StatusPending}
		slog.Debug("Discarded in-flight result", "index", i, "name", it.file.Name)
		return Event{}, false
	}

	ev := Event{Index: i, Name: it.file.Name}
	if suggestErr != nil {
		it.status = models.ItemStatus{State: models.StatusError, Message: suggestErr.Error()}
		if it.ok {
			o.renamed--
			it.ok = false
		}
		ev.Kind = EventItemError
		ev.Err = suggestErr
		slog.Error("Failed to rename file", "index", i, "name", it.file.Name, "error", suggestErr)
	} else {
		if it.title != "" {
			// the previous title of this item is free again
			delete(o.used, it.title)
		}
		it.title = naming.Resolve(normalized, o.used, o.policy.MaxWords)
		it.status = models.ItemStatus{State: models.StatusOK}
		if !it.ok {
			o.renamed++
			it.ok = true
		}
		ev.Kind = EventItemOK
		ev.Title = it.title
		slog.Info("Renamed file", "index", i, "name", it.file.Name, "title", it.title)
	}
	if counted {
		o.processed++
	}
	ev.Progress = o.progressLocked()
	return ev, true
}

func (o *Orchestrator) progressLocked() int {
	if len(o.items) == 0 {
		return 0
	}
	return int(math.Round(float64(o.processed) / float64(len(o.items)) * 100))
}

// RenameOne processes a single item outside the main loop, for instance to
// regenerate a title. It shares the batch's issued titles, so the new title
// never collides with another item's.
func (o *Orchestrator) RenameOne(ctx context.Context, index int) (string, error) {
	o.mu.Lock()
	if index < 0 || index >= len(o.items) {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	gen := o.gen
	f := o.items[index].file
	o.items[index].status = models.ItemStatus{State: models.StatusRenaming}
	o.mu.Unlock()

	o.emit(Event{Kind: EventItemStarted, Index: index, Name: f.Name})
	normalized, err := o.suggest(ctx, f)

	ev, ok := o.commit(ctx, gen, index, normalized, err, false)
	if !ok {
		return "", ErrBatchReplaced
	}
	o.emit(ev)
	if err != nil {
		return "", err
	}
	return ev.Title, nil
}

// Stop ends the run at the next checkpoint between items. An in-flight oracle
// call is not cancelled; its result is dropped. Stop is idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		o.state = StateStopped
	} else {
		o.state = StateIdle
	}
	o.cond.Broadcast()
}

// Pause holds the loop before its next item. It has no effect unless running.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active && o.state == StateRunning {
		o.state = StatePaused
	}
}

// Resume continues a paused run.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active && o.state == StatePaused {
		o.state = StateRunning
		o.cond.Broadcast()
	}
}

// TogglePause pauses a running batch or resumes a paused one.
func (o *Orchestrator) TogglePause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return
	}
	switch o.state {
	case StateRunning:
		o.state = StatePaused
	case StatePaused:
		o.state = StateRunning
		o.cond.Broadcast()
	}
}

// Clear drops the batch and every piece of run state, and releases previews.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.gen++
	o.items = nil
	o.used = naming.NewUsedSet()
	o.processed = 0
	o.renamed = 0
	o.state = StateIdle
	o.active = false
	o.cond.Broadcast()
	o.mu.Unlock()

	if r, ok := o.previewer.(Releaser); ok {
		r.Release()
	}
}

// UsedTitles returns a copy of the titles issued in the current run.
func (o *Orchestrator) UsedTitles() naming.UsedSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.used.Clone()
}

// Snapshot returns the current state of the batch.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		State:     o.state,
		Paused:    o.state == StatePaused,
		Progress:  o.progressLocked(),
		Processed: o.processed,
		Renamed:   o.renamed,
		Total:     len(o.items),
		Items:     make([]ItemView, len(o.items)),
	}
	for i, it := range o.items {
		v := ItemView{
			Index:  i,
			Name:   it.file.Name,
			Kind:   it.file.Kind,
			Status: it.status,
			Title:  it.title,
		}
		if it.title != "" {
			v.FinalName = export.FinalName(it.title, it.file.Ext())
		}
		s.Items[i] = v
	}
	return s
}

// Entries returns every file of the batch with its final name. Files without
// a resolved title are named after their normalized file name, kept unique
// against the issued titles.
func (o *Orchestrator) Entries() []export.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	used := o.used.Clone()
	entries := make([]export.Entry, 0, len(o.items))
	for i, it := range o.items {
		title := it.title
		if title == "" {
			title = naming.Resolve(naming.Normalize(it.file.Stem(), nil, o.policy), used, o.policy.MaxWords)
		}
		entries = append(entries, export.Entry{
			Index:     i,
			Original:  it.file.Name,
			FinalName: export.FinalName(title, it.file.Ext()),
			Data:      it.file.Data,
		})
	}
	return entries
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer != nil {
		o.observer(ev)
	}
}
