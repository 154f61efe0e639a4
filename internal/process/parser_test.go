package process

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_HeaderAndRows(t *testing.T) {
	got, err := Parse("PID Arrival Burst Priority\n1 0.00 5.00 2\n2 1.00 3.00 1")
	require.NoError(t, err)

	want := []Record{
		{ID: "1", ArrivalTime: 0, BurstTime: 5, Priority: "2"},
		{ID: "2", ArrivalTime: 1, BurstTime: 3, Priority: "1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ProcessHeaderYieldsEveryDataLine(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("Process ID     Arrival Time   Burst Time     Priority\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "P%d %d %d %d\n", i, i*2, i+1, n-i)
			}

			got, err := Parse(b.String())
			require.NoError(t, err)
			require.Len(t, got, n)
			for i, r := range got {
				assert.Equal(t, fmt.Sprintf("P%d", i), r.ID)
			}
		})
	}
}

func TestParse_EmptyPayload(t *testing.T) {
	for _, payload := range []string{"", "   ", "\n\n\n", " \t \r\n \n"} {
		_, err := Parse(payload)
		assert.ErrorIs(t, err, ErrEmptyPayload, "payload %q", payload)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	_, err := Parse("\n  Process ID Arrival Time Burst Time Priority  \n\n")
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestParse_SingleLineIsNeverEnough(t *testing.T) {
	_, err := Parse("P1 0 5 2")
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestParse_FirstLineDataWithoutHeader(t *testing.T) {
	got, err := Parse("P1 0 5 2\nP2 1 3 1\n")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "P1", got[0].ID)
}

func TestParseDetailed_DropsMalformedRows(t *testing.T) {
	payload := strings.Join([]string{
		"Process ID Arrival Time Burst Time Priority",
		"P1 0 5 2",
		"P2 1",
		"",
		"P3 x 4 1",
		"P4 2 NaN 1",
		"P5 3 4 1 extra",
	}, "\n")

	res, err := ParseDetailed(payload)
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"P1", "P5"}, ids)
	require.Len(t, res.Dropped, 3)
	assert.Equal(t, 3, res.Dropped[0].Line)
	assert.Equal(t, 5, res.Dropped[1].Line)
	assert.Equal(t, 6, res.Dropped[2].Line)
	assert.Equal(t, "Process ID Arrival Time Burst Time Priority", res.Header)
}

func TestParse_NoQualifyingRowsIsEmptyNotNil(t *testing.T) {
	got, err := Parse("Process ID Arrival Burst Priority\nbad\nalso bad")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParse_CRLF(t *testing.T) {
	got, err := Parse("Process ID Arrival Burst Priority\r\nP1 0 5 2\r\nP2 1 3 1\r\n")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Priority)
}

func TestFormatTime_Idempotent(t *testing.T) {
	for _, v := range []float64{0, 1, 1.005, 2.5, 3.14159, 12.999, 1e6 + 0.125} {
		once := FormatTime(v)
		parsed, err := strconv.ParseFloat(once, 64)
		require.NoError(t, err)
		assert.Equal(t, once, FormatTime(parsed), "value %v", v)
	}
}

func TestFormatTime_TiesRoundUp(t *testing.T) {
	cases := map[float64]string{
		0:       "0.00",
		0.125:   "0.13",
		2.625:   "2.63",
		1.005:   "1.00",
		0.5:     "0.50",
		12.999:  "13.00",
		-0.125:  "-0.13",
		-0.001:  "-0.00",
		4:       "4.00",
		1234.5:  "1234.50",
		0.004:   "0.00",
		99.995:  "100.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTime(in), "value %v", in)
	}
}

func TestRecordCells(t *testing.T) {
	r := Record{ID: "P7", ArrivalTime: 1, BurstTime: 2.346, Priority: "3"}
	assert.Equal(t, []string{"P7", "1.00", "2.35", "3"}, r.Cells())
}

func TestFormat_RoundTripsThroughParse(t *testing.T) {
	in := []Record{
		{ID: "P1", ArrivalTime: 3, BurstTime: 11, Priority: "6"},
		{ID: "P2", ArrivalTime: 0, BurstTime: 25, Priority: "1"},
	}
	got, err := Parse(Format(in))
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
