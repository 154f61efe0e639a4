package generator

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-process-table-ui/internal/process"
)

func TestGenerate_WithinLimits(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		g := New(rand.New(rand.NewPCG(seed, seed+1)), DefaultLimits)
		records, params := g.Generate()

		require.GreaterOrEqual(t, len(records), 3)
		require.LessOrEqual(t, len(records), 10)
		assert.Equal(t, len(records), params.Count)
		assert.GreaterOrEqual(t, params.LambdaPriority, 4.0)
		assert.LessOrEqual(t, params.LambdaPriority, 10.0)

		for i, r := range records {
			assert.Equal(t, "P"+strconv.Itoa(i+1), r.ID)
			assert.GreaterOrEqual(t, r.ArrivalTime, 0.0)
			assert.LessOrEqual(t, r.ArrivalTime, 15.0)
			assert.GreaterOrEqual(t, r.BurstTime, 1.0)
			assert.LessOrEqual(t, r.BurstTime, 25.0)
			p, err := strconv.Atoi(r.Priority)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p, 1)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, pa := New(rand.New(rand.NewPCG(7, 7)), DefaultLimits).Generate()
	b, pb := New(rand.New(rand.NewPCG(7, 7)), DefaultLimits).Generate()
	assert.Equal(t, a, b)
	assert.Equal(t, pa, pb)
}

func TestGenerate_FormattedTableParses(t *testing.T) {
	records, _ := New(rand.New(rand.NewPCG(1, 2)), DefaultLimits).Generate()

	got, err := process.Parse(process.Format(records))
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatalf("parsed table differs (-want +got):\n%s", diff)
	}
}

func TestGenerate_FixedLimits(t *testing.T) {
	limits := Limits{MinProcesses: 2, MaxProcesses: 2, MinArrival: 5, MaxArrival: 5, MinBurst: 3, MaxBurst: 3, MinLambda: 4, MaxLambda: 4, MinPriority: 1}
	records, params := New(nil, limits).Generate()

	require.Len(t, records, 2)
	assert.Equal(t, 5.0, params.ArrivalMean)
	assert.Equal(t, 0.0, params.ArrivalStd)
	assert.Equal(t, 3.0, params.BurstMean)
	assert.Equal(t, 4.0, params.LambdaPriority)
}

func TestInputParamsString(t *testing.T) {
	s := InputParams{Count: 4, ArrivalMean: 6.24, ArrivalStd: 2.04, BurstMean: 12, BurstStd: 5.5, LambdaPriority: 7.3}.String()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	assert.Equal(t, []string{
		"Processes Number: 4",
		"Mean and Standard Deviation for Arrival Time: (6.2, 2.0)",
		"Mean and Standard Deviation for Burst Time: (12.0, 5.5)",
		"Lambda Priority: 7.3",
	}, lines)
}

func TestMeanStd(t *testing.T) {
	m, s := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, m)
	assert.Equal(t, 2.0, s)

	m, s = meanStd(nil)
	assert.Zero(t, m)
	assert.Zero(t, s)
}
