package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/filestructor/structor/internal/models"
	"github.com/filestructor/structor/internal/naming"
)

// scriptedOracle answers by file name. When gate is set every call waits for a
// value on it; when started is set every call announces itself first.
type scriptedOracle struct {
	mu       sync.Mutex
	calls    []string
	replies  map[string]string
	failures map[string]error
	started  chan string
	gate     chan struct{}
}

func (s *scriptedOracle) Suggest(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.File.Name)
	s.mu.Unlock()

	if s.started != nil {
		s.started <- req.File.Name
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := s.failures[req.File.Name]; err != nil {
		return "", err
	}
	return s.replies[req.File.Name], nil
}

func (s *scriptedOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testFiles(names ...string) []models.ImportedFile {
	files := make([]models.ImportedFile, len(names))
	for i, name := range names {
		kind, _ := models.KindOf(name)
		files[i] = models.ImportedFile{Name: name, Kind: kind, Data: []byte("data:" + name)}
	}
	return files
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunRenamesAndDisambiguates(t *testing.T) {
	oracle := &scriptedOracle{replies: map[string]string{
		"flower.svg":  "Flower",
		"flower2.svg": "Flower",
		"bird.eps":    "Bird Silhouette",
	}}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("flower.svg", "flower2.svg", "bird.eps"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("Expected idle state, got %s", snap.State)
	}
	if snap.Renamed != 3 || snap.Progress != 100 {
		t.Errorf("Expected 3 renamed at 100%%, got %d at %d%%", snap.Renamed, snap.Progress)
	}
	for _, it := range snap.Items {
		if it.Status.State != models.StatusOK {
			t.Errorf("Expected item %d ok, got %s", it.Index, it.Status.State)
		}
		n := naming.WordCount(it.Title)
		if n < 12 || n > 15 {
			t.Errorf("Expected 12-15 words for item %d, got %d: %q", it.Index, n, it.Title)
		}
	}

	first, second := snap.Items[0].Title, snap.Items[1].Title
	if first == second {
		t.Fatalf("Expected flower titles to differ, both %q", first)
	}
	if second != first+" a" {
		t.Errorf("Expected %q, got %q", first+" a", second)
	}
	if !strings.HasPrefix(snap.Items[2].Title, "Bird Silhouette ") {
		t.Errorf("Expected bird title to lead with oracle words, got %q", snap.Items[2].Title)
	}
	if snap.Items[2].FinalName != snap.Items[2].Title+".eps" {
		t.Errorf("Expected final name with extension, got %q", snap.Items[2].FinalName)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	var events []Event
	oracle := &scriptedOracle{
		replies: map[string]string{
			"a.svg": "Red Apple",
			"c.svg": "Green Pear",
		},
		failures: map[string]error{"b.svg": errors.New("network unreachable")},
	}
	o := New(oracle, naming.LongPolicy(), WithObserver(func(ev Event) { events = append(events, ev) }))
	o.Load(testFiles("a.svg", "b.svg", "c.svg"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.Items[0].Status.State != models.StatusOK || snap.Items[2].Status.State != models.StatusOK {
		t.Errorf("Expected items 0 and 2 ok, got %s and %s", snap.Items[0].Status.State, snap.Items[2].Status.State)
	}
	if snap.Items[1].Status.State != models.StatusError {
		t.Errorf("Expected item 1 error, got %s", snap.Items[1].Status.State)
	}
	if snap.Items[1].Status.Message != "network unreachable" {
		t.Errorf("Expected error message, got %q", snap.Items[1].Status.Message)
	}
	if snap.Progress != 100 || snap.Processed != 3 || snap.Renamed != 2 {
		t.Errorf("Expected 100%% with 3 processed and 2 renamed, got %d%% %d %d", snap.Progress, snap.Processed, snap.Renamed)
	}

	var progress []int
	for _, ev := range events {
		if ev.Kind == EventItemOK || ev.Kind == EventItemError {
			progress = append(progress, ev.Progress)
		}
	}
	expected := []int{33, 67, 100}
	if len(progress) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, progress)
	}
	for i := range expected {
		if progress[i] != expected[i] {
			t.Errorf("Expected progress %v, got %v", expected, progress)
		}
	}
	if last := events[len(events)-1]; last.Kind != EventBatchFinished {
		t.Errorf("Expected batch_finished last, got %s", last.Kind)
	}
}

func TestStopBetweenItems(t *testing.T) {
	oracle := &scriptedOracle{replies: map[string]string{
		"one.svg":   "Sun",
		"two.svg":   "Moon",
		"three.svg": "Star",
	}}
	var o *Orchestrator
	o = New(oracle, naming.LongPolicy(), WithObserver(func(ev Event) {
		if ev.Kind == EventItemOK && ev.Index == 0 {
			o.Stop()
		}
	}))
	o.Load(testFiles("one.svg", "two.svg", "three.svg"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("Expected idle state, got %s", snap.State)
	}
	if snap.Items[0].Status.State != models.StatusOK {
		t.Errorf("Expected item 0 ok, got %s", snap.Items[0].Status.State)
	}
	for _, it := range snap.Items[1:] {
		if it.Status.State != models.StatusPending {
			t.Errorf("Expected item %d pending, got %s", it.Index, it.Status.State)
		}
	}
	if n := o.UsedTitles().Len(); n != 1 {
		t.Errorf("Expected exactly 1 used title, got %d", n)
	}
	if oracle.callCount() != 1 {
		t.Errorf("Expected 1 oracle call, got %d", oracle.callCount())
	}
}

func TestEmptySuggestionWithoutPadding(t *testing.T) {
	oracle := &scriptedOracle{replies: map[string]string{"x.ai": ""}}
	o := New(oracle, naming.ShortPolicy())
	o.Load(testFiles("x.ai"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := o.Snapshot().Items[0].Title; got != naming.UntitledTitle {
		t.Errorf("Expected %q, got %q", naming.UntitledTitle, got)
	}
}

func TestPauseHoldsNextItem(t *testing.T) {
	oracle := &scriptedOracle{
		replies: map[string]string{"a.svg": "Apple", "b.svg": "Banana", "c.svg": "Cherry"},
		started: make(chan string),
		gate:    make(chan struct{}),
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg", "b.svg", "c.svg"))

	done, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	<-oracle.started
	o.Pause()
	oracle.gate <- struct{}{}

	waitFor(t, "item 0 ok", func() bool {
		return o.Snapshot().Items[0].Status.State == models.StatusOK
	})

	select {
	case name := <-oracle.started:
		t.Fatalf("Expected no oracle call while paused, got %s", name)
	case <-time.After(50 * time.Millisecond):
	}

	snap := o.Snapshot()
	if snap.State != StatePaused || !snap.Paused {
		t.Errorf("Expected paused state, got %s", snap.State)
	}
	if snap.Items[1].Status.State != models.StatusPending {
		t.Errorf("Expected item 1 pending, got %s", snap.Items[1].Status.State)
	}

	o.TogglePause()
	for i := 0; i < 2; i++ {
		<-oracle.started
		oracle.gate <- struct{}{}
	}
	<-done

	snap = o.Snapshot()
	if snap.State != StateIdle || snap.Renamed != 3 {
		t.Errorf("Expected idle with 3 renamed, got %s with %d", snap.State, snap.Renamed)
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	oracle := &scriptedOracle{
		replies: map[string]string{"a.svg": "Apple", "b.svg": "Banana"},
		started: make(chan string),
		gate:    make(chan struct{}),
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg", "b.svg"))

	done, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-oracle.started
	o.Stop()
	o.Stop()
	oracle.gate <- struct{}{}
	<-done

	snap := o.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("Expected idle state, got %s", snap.State)
	}
	for _, it := range snap.Items {
		if it.Status.State != models.StatusPending {
			t.Errorf("Expected item %d pending, got %s", it.Index, it.Status.State)
		}
	}
	if n := o.UsedTitles().Len(); n != 0 {
		t.Errorf("Expected no used titles, got %d", n)
	}
}

func TestStopWhilePaused(t *testing.T) {
	oracle := &scriptedOracle{
		replies: map[string]string{"a.svg": "Apple", "b.svg": "Banana"},
		started: make(chan string),
		gate:    make(chan struct{}),
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg", "b.svg"))

	done, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-oracle.started
	o.Pause()
	oracle.gate <- struct{}{}
	waitFor(t, "item 0 ok", func() bool {
		return o.Snapshot().Items[0].Status.State == models.StatusOK
	})

	o.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected loop to end after stop while paused")
	}
	if s := o.Snapshot(); s.State != StateIdle || s.Items[1].Status.State != models.StatusPending {
		t.Errorf("Expected idle with item 1 pending, got %s and %s", s.State, s.Items[1].Status.State)
	}
}

func TestCancelWhilePaused(t *testing.T) {
	oracle := &scriptedOracle{
		replies: map[string]string{"a.svg": "Apple", "b.svg": "Banana"},
		started: make(chan string),
		gate:    make(chan struct{}),
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg", "b.svg"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done, err := o.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-oracle.started
	o.Pause()
	oracle.gate <- struct{}{}
	waitFor(t, "item 0 ok", func() bool {
		return o.Snapshot().Items[0].Status.State == models.StatusOK
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected loop to end after cancellation")
	}
	if s := o.Snapshot(); s.State != StateIdle {
		t.Errorf("Expected idle, got %s", s.State)
	}
}

func TestStartPreconditions(t *testing.T) {
	oracle := &scriptedOracle{
		replies: map[string]string{"a.svg": "Apple"},
		started: make(chan string),
		gate:    make(chan struct{}),
	}
	o := New(oracle, naming.LongPolicy())

	if _, err := o.Start(context.Background()); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Expected ErrNoFiles, got %v", err)
	}
	if s := o.Snapshot(); s.State != StateIdle {
		t.Errorf("Expected idle after failed start, got %s", s.State)
	}

	o.Load(testFiles("a.svg"))
	done, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-oracle.started
	if err := o.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}
	oracle.gate <- struct{}{}
	<-done
}

func TestPauseIgnoredWhenIdle(t *testing.T) {
	o := New(&scriptedOracle{}, naming.LongPolicy())
	o.Load(testFiles("a.svg"))

	o.Pause()
	o.TogglePause()
	o.Resume()
	if s := o.Snapshot(); s.State != StateIdle || s.Paused {
		t.Errorf("Expected idle and unpaused, got %s (paused %v)", s.State, s.Paused)
	}
	o.Stop()
	if s := o.Snapshot(); s.State != StateIdle {
		t.Errorf("Expected idle after stop, got %s", s.State)
	}
}

func TestRenameOneSharesUsedTitles(t *testing.T) {
	oracle := &scriptedOracle{replies: map[string]string{
		"a.svg": "Lion King",
		"b.svg": "Tiger",
	}}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg", "b.svg"))
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	before := o.Snapshot()

	// regenerating with the same answer gives the item its title back
	title, err := o.RenameOne(context.Background(), 0)
	if err != nil {
		t.Fatalf("RenameOne failed: %v", err)
	}
	if title != before.Items[0].Title {
		t.Errorf("Expected %q, got %q", before.Items[0].Title, title)
	}

	// a regenerated title must not take another item's title
	twins := &scriptedOracle{replies: map[string]string{"cat.svg": "Cat", "cat2.svg": "Cat"}}
	o2 := New(twins, naming.LongPolicy())
	o2.Load(testFiles("cat.svg", "cat2.svg"))
	if err := o2.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	snap := o2.Snapshot()
	if snap.Items[1].Title != snap.Items[0].Title+" a" {
		t.Fatalf("Expected suffixed twin, got %q and %q", snap.Items[0].Title, snap.Items[1].Title)
	}
	again, err := o2.RenameOne(context.Background(), 1)
	if err != nil {
		t.Fatalf("RenameOne failed: %v", err)
	}
	if again != snap.Items[1].Title {
		t.Errorf("Expected %q, got %q", snap.Items[1].Title, again)
	}
	if o2.UsedTitles().Len() != 2 {
		t.Errorf("Expected 2 used titles, got %d", o2.UsedTitles().Len())
	}
	if o.Snapshot().Renamed != 2 {
		t.Errorf("Expected renamed count to stay at 2, got %d", o.Snapshot().Renamed)
	}

	if _, err := o.RenameOne(context.Background(), 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRenameOneFailureKeepsBatchUsable(t *testing.T) {
	oracle := &scriptedOracle{failures: map[string]error{"a.svg": errors.New("HTTP 500")}}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("a.svg"))

	if _, err := o.RenameOne(context.Background(), 0); err == nil {
		t.Fatal("Expected error from RenameOne")
	}
	s := o.Snapshot()
	if s.Items[0].Status.State != models.StatusError || s.Items[0].Status.Message != "HTTP 500" {
		t.Errorf("Expected error status, got %+v", s.Items[0].Status)
	}
	if s.State != StateIdle {
		t.Errorf("Expected idle, got %s", s.State)
	}
}

func TestRenameOneFailureReleasesRenamedCount(t *testing.T) {
	oracle := &scriptedOracle{
		replies:  map[string]string{"fox.svg": "Red Fox", "owl.svg": "Snowy Owl"},
		failures: map[string]error{},
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("fox.svg", "owl.svg"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := o.Snapshot().Renamed; got != 2 {
		t.Fatalf("Expected 2 renamed after run, got %d", got)
	}
	issued := o.Entries()[0].FinalName

	oracle.failures["fox.svg"] = errors.New("HTTP 500")
	if _, err := o.RenameOne(context.Background(), 0); err == nil {
		t.Fatal("Expected error from RenameOne")
	}
	s := o.Snapshot()
	if s.Renamed != 1 {
		t.Errorf("Expected 1 renamed after failed retry, got %d", s.Renamed)
	}
	if s.Items[0].Status.State != models.StatusError {
		t.Errorf("Expected error status, got %+v", s.Items[0].Status)
	}
	if got := o.Entries()[0].FinalName; got != issued {
		t.Errorf("Expected export name %q to survive failure, got %q", issued, got)
	}

	if _, err := o.RenameOne(context.Background(), 0); err == nil {
		t.Fatal("Expected second error from RenameOne")
	}
	if got := o.Snapshot().Renamed; got != 1 {
		t.Errorf("Expected repeated failure to leave 1 renamed, got %d", got)
	}

	delete(oracle.failures, "fox.svg")
	if _, err := o.RenameOne(context.Background(), 0); err != nil {
		t.Fatalf("RenameOne failed: %v", err)
	}
	if got := o.Snapshot().Renamed; got != 2 {
		t.Errorf("Expected 2 renamed after recovery, got %d", got)
	}
}

type releasingPreviewer struct {
	released bool
	calls    int
}

func (p *releasingPreviewer) Preview(ctx context.Context, f models.ImportedFile) ([]byte, error) {
	p.calls++
	if f.Kind != models.KindSVG {
		return nil, nil
	}
	return []byte("png"), nil
}

func (p *releasingPreviewer) Release() { p.released = true }

type previewCheckingOracle struct {
	t *testing.T
}

func (p previewCheckingOracle) Suggest(ctx context.Context, req Request) (string, error) {
	wantPreview := req.File.Kind == models.KindSVG
	if (req.Preview != nil) != wantPreview {
		p.t.Errorf("Unexpected preview for %s: %q", req.File.Name, req.Preview)
	}
	return "Mountain Lake", nil
}

func TestPreviewAndClear(t *testing.T) {
	prev := &releasingPreviewer{}
	o := New(previewCheckingOracle{t: t}, naming.LongPolicy(), WithPreviewer(prev))
	o.Load(testFiles("a.svg", "b.eps"))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if prev.calls != 2 {
		t.Errorf("Expected 2 preview calls, got %d", prev.calls)
	}

	prev.released = false
	o.Clear()
	s := o.Snapshot()
	if s.Total != 0 || s.Renamed != 0 || s.Progress != 0 || s.State != StateIdle {
		t.Errorf("Expected empty batch after clear, got %+v", s)
	}
	if o.UsedTitles().Len() != 0 {
		t.Error("Expected used titles to be cleared")
	}
	if !prev.released {
		t.Error("Expected previews to be released")
	}
	if err := o.Run(context.Background()); !errors.Is(err, ErrNoFiles) {
		t.Errorf("Expected ErrNoFiles after clear, got %v", err)
	}
}

func TestEntriesFallBackToFileName(t *testing.T) {
	oracle := &scriptedOracle{
		replies:  map[string]string{"sunset.svg": "Sunset Beach"},
		failures: map[string]error{"Sunset-Beach.eps": errors.New("timeout")},
	}
	o := New(oracle, naming.LongPolicy())
	o.Load(testFiles("sunset.svg", "Sunset-Beach.eps"))
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries := o.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].FinalName, ".svg") || !strings.HasSuffix(entries[1].FinalName, ".eps") {
		t.Errorf("Expected original extensions, got %q and %q", entries[0].FinalName, entries[1].FinalName)
	}
	stem0 := strings.TrimSuffix(entries[0].FinalName, ".svg")
	stem1 := strings.TrimSuffix(entries[1].FinalName, ".eps")
	if stem0 == stem1 {
		t.Errorf("Expected distinct titles, both %q", stem0)
	}
	if !bytes.Equal(entries[1].Data, []byte("data:Sunset-Beach.eps")) {
		t.Errorf("Expected original bytes, got %q", entries[1].Data)
	}
	if o.UsedTitles().Len() != 1 {
		t.Errorf("Expected export to leave used titles untouched, got %d", o.UsedTitles().Len())
	}
}

func TestIndependentBatches(t *testing.T) {
	for _, name := range []string{"first", "second", "third"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			oracle := &scriptedOracle{replies: map[string]string{"owl.svg": "Owl", "owl2.svg": "Owl"}}
			o := New(oracle, naming.LongPolicy())
			o.Load(testFiles("owl.svg", "owl2.svg"))
			if err := o.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			s := o.Snapshot()
			if strings.HasSuffix(s.Items[0].Title, " a") {
				t.Errorf("Expected first title without suffix, got %q", s.Items[0].Title)
			}
			if s.Items[1].Title != s.Items[0].Title+" a" {
				t.Errorf("Expected suffixed second title, got %q", s.Items[1].Title)
			}
		})
	}
}
