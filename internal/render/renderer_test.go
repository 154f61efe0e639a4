package render

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-process-table-ui/internal/process"
)

type recorder struct {
	visible  bool
	banners  []Banner
	status   Banner
	caption  string
	header   []string
	rows     [][]string
	errorMsg string
	errSpan  int
}

func (r *recorder) SetVisible(v bool) { r.visible = v }
func (r *recorder) SetStatus(b Banner) {
	r.status = b
	r.banners = append(r.banners, b)
}
func (r *recorder) SetCaption(text string) { r.caption = text }
func (r *recorder) SetRows(header []string, rows [][]string) {
	r.header = header
	r.rows = rows
	r.errorMsg = ""
}
func (r *recorder) SetError(message string, span int) {
	r.rows = nil
	r.errorMsg = message
	r.errSpan = span
}

func TestShowRows_PreservesOrderAndCaption(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, Options{})

	r.ShowRows([]process.Record{
		{ID: "P3", ArrivalTime: 4, BurstTime: 1, Priority: "1"},
		{ID: "P1", ArrivalTime: 0, BurstTime: 2.5, Priority: "9"},
	})

	require.Len(t, rec.rows, 2)
	assert.Equal(t, []string{"P3", "4.00", "1.00", "1"}, rec.rows[0])
	assert.Equal(t, []string{"P1", "0.00", "2.50", "9"}, rec.rows[1])
	assert.Equal(t, "Generated Processes (2 processes)", rec.caption)
	assert.True(t, rec.visible)
	assert.Equal(t, process.Columns, rec.header)

	st := r.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Len(t, st.Rows, 2)
}

func TestShowRows_Empty(t *testing.T) {
	rec := &recorder{rows: [][]string{{"stale"}}}
	r := NewRenderer(rec, Options{})

	assert.NotPanics(t, func() { r.ShowRows(nil) })
	assert.Empty(t, rec.rows)
	assert.Equal(t, "Generated Processes (0 processes)", rec.caption)
}

func TestShowLoading_ReplacesStatusAndClearsRows(t *testing.T) {
	rec := &recorder{visible: true}
	r := NewRenderer(rec, Options{HideWhileLoading: true})
	r.ShowRows([]process.Record{{ID: "P1", Priority: "1"}})

	r.ShowLoading("Generating new processes...")
	r.ShowLoading("Generating new processes...")

	assert.Empty(t, rec.rows)
	assert.False(t, rec.visible)
	assert.Equal(t, Banner{Level: LevelInfo, Text: "Generating new processes..."}, rec.status)
	assert.Equal(t, PhaseLoading, r.State().Phase)
}

func TestShowLoading_KeepsContainerByDefault(t *testing.T) {
	rec := &recorder{visible: true}
	r := NewRenderer(rec, Options{})
	r.ShowLoading("Loading processes data...")
	assert.True(t, rec.visible)
}

func TestShowError(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, Options{})
	r.ShowRows([]process.Record{{ID: "P1", Priority: "1"}})

	r.ShowError("disk full")

	assert.Empty(t, rec.rows)
	assert.Equal(t, "disk full", rec.errorMsg)
	assert.Equal(t, 4, rec.errSpan)
	assert.Equal(t, Banner{Level: LevelError, Text: "Error: disk full"}, rec.status)

	st := r.State()
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, "disk full", st.Message)
	assert.Empty(t, st.Rows)
}

func TestShowError_ArbitraryText(t *testing.T) {
	r := NewRenderer(&recorder{}, Options{})
	for _, msg := range []string{"", "<script>x</script>", "%s %d {{.}}", "\x00\n\t"} {
		assert.NotPanics(t, func() { r.ShowError(msg) })
	}
}

func TestShowSuccess_KeepsRows(t *testing.T) {
	r := NewRenderer(&recorder{}, Options{})
	r.ShowRows([]process.Record{{ID: "P1", Priority: "1"}})
	r.ShowSuccess("Processes generated successfully!")

	st := r.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, "Processes generated successfully!", st.Message)
	assert.Len(t, st.Rows, 1)
}

func TestSubscribe(t *testing.T) {
	r := NewRenderer(&recorder{}, Options{})

	var mu sync.Mutex
	var phases []Phase
	unsubscribe := r.Subscribe(func(s State) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	r.ShowLoading("Loading processes data...")
	r.ShowError("boom")
	unsubscribe()
	r.ShowRows(nil)

	assert.Equal(t, []Phase{PhaseLoading, PhaseError}, phases)
}

func TestSubscribe_DeliversInTargetOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, Options{})

	var mu sync.Mutex
	var seen []string
	r.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s.Message)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.ShowError(strconv.Itoa(i))
		}(i)
	}
	wg.Wait()

	applied := make([]string, 0, len(rec.banners))
	for _, b := range rec.banners {
		applied = append(applied, strings.TrimPrefix(b.Text, "Error: "))
	}
	require.Len(t, seen, 50)
	assert.Equal(t, applied, seen)
	assert.Equal(t, seen[len(seen)-1], r.State().Message)
}

func TestStateSnapshotIsCopied(t *testing.T) {
	r := NewRenderer(&recorder{}, Options{})
	r.ShowRows([]process.Record{{ID: "P1", Priority: "1"}})

	st := r.State()
	st.Rows[0].ID = "mutated"
	assert.Equal(t, "P1", r.State().Rows[0].ID)
}

func TestInitialStateIsIdle(t *testing.T) {
	r := NewRenderer(&recorder{}, Options{})
	assert.Equal(t, PhaseIdle, r.State().Phase)
}
