// Package render reflects the process table render state into a display
// target.
package render

import (
	"fmt"
	"sync"
	"time"

	"go-process-table-ui/internal/process"
)

// Target is a display surface for the process table. Every call replaces
// the previous content of the element it addresses.
type Target interface {
	SetVisible(visible bool)
	SetStatus(b Banner)
	SetCaption(text string)
	SetRows(header []string, rows [][]string)
	// SetError replaces all rows with one row spanning span columns.
	SetError(message string, span int)
}

// Observer is notified after every state transition.
type Observer func(State)

// Options tune renderer behaviour.
type Options struct {
	// HideWhileLoading hides the table container in the loading state.
	HideWhileLoading bool
}

// Renderer drives a Target from render state transitions. Target calls are
// serialized.
type Renderer struct {
	target Target
	opts   Options
	now    func() time.Time

	// notifyMu orders transitions with their delivery. Observers must not
	// call the Show methods.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     State
	observers map[int]Observer
	nextID    int
}

func NewRenderer(target Target, opts Options) *Renderer {
	r := &Renderer{
		target:    target,
		opts:      opts,
		now:       time.Now,
		observers: map[int]Observer{},
	}
	r.state = State{Phase: PhaseIdle, ChangedAt: r.now().UTC()}
	return r
}

// State returns a snapshot of the current render state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyState(r.state)
}

// Subscribe registers fn for state transitions and returns a function that
// removes it.
func (r *Renderer) Subscribe(fn Observer) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// ShowLoading clears the rows and shows an info banner.
func (r *Renderer) ShowLoading(message string) {
	r.transition(State{Phase: PhaseLoading, Message: message}, func(t Target) {
		t.SetRows(process.Columns, nil)
		t.SetStatus(Banner{Level: LevelInfo, Text: message})
		if r.opts.HideWhileLoading {
			t.SetVisible(false)
		}
	})
}

// LoadedMessage is the banner text after rows are shown.
const LoadedMessage = "Processes data loaded successfully!"

// ShowRows replaces the rows with one row per record, in order.
func (r *Renderer) ShowRows(records []process.Record) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Cells())
	}
	kept := append([]process.Record{}, records...)

	r.transition(State{Phase: PhaseSuccess, Message: LoadedMessage, Rows: kept}, func(t Target) {
		t.SetVisible(true)
		t.SetRows(process.Columns, rows)
		t.SetCaption(Caption(len(rows)))
		t.SetStatus(Banner{Level: LevelSuccess, Text: LoadedMessage})
	})
}

// ShowSuccess sets a success banner and leaves the rows alone.
func (r *Renderer) ShowSuccess(message string) {
	r.transition(State{Phase: PhaseSuccess, Message: message}, func(t Target) {
		t.SetStatus(Banner{Level: LevelSuccess, Text: message})
	})
}

// ShowError replaces the rows with a single error row and sets an error
// banner. message is display text only.
func (r *Renderer) ShowError(message string) {
	r.transition(State{Phase: PhaseError, Message: message}, func(t Target) {
		t.SetVisible(true)
		t.SetError(message, len(process.Columns))
		t.SetStatus(Banner{Level: LevelError, Text: "Error: " + message})
	})
}

// Caption is the table caption for n rendered rows.
func Caption(n int) string {
	return fmt.Sprintf("Generated Processes (%d processes)", n)
}

func (r *Renderer) transition(next State, apply func(Target)) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	// ShowSuccess keeps the rows of the state it replaces.
	if next.Phase == PhaseSuccess && next.Rows == nil && r.state.Phase == PhaseSuccess {
		next.Rows = r.state.Rows
	}
	next.ChangedAt = r.now().UTC()
	apply(r.target)
	r.state = next
	snapshot := copyState(next)
	observers := make([]Observer, 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

func copyState(s State) State {
	if s.Rows != nil {
		s.Rows = append([]process.Record(nil), s.Rows...)
	}
	return s
}
