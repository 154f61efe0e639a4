package processstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-process-table-ui/internal/generator"
	"go-process-table-ui/internal/process"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("sqlite", "file:"+name+"?mode=memory&cache=shared", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLatest_BeforeGeneration(t *testing.T) {
	s := openTest(t)
	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotGenerated)
}

func TestReplaceAndLatest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := []process.Record{
		{ID: "P1", ArrivalTime: 0, BurstTime: 5, Priority: "2"},
		{ID: "P2", ArrivalTime: 3, BurstTime: 1, Priority: "7"},
		{ID: "P3", ArrivalTime: 1, BurstTime: 9, Priority: "4"},
	}
	require.NoError(t, s.Replace(ctx, first, generator.InputParams{Count: 3, LambdaPriority: 5.5}, at))

	second := []process.Record{{ID: "P1", ArrivalTime: 2, BurstTime: 2, Priority: "1"}}
	require.NoError(t, s.Replace(ctx, second, generator.InputParams{Count: 1, ArrivalMean: 2}, at.Add(time.Minute)))

	snap, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, snap.Records)
	assert.Equal(t, 1, snap.Params.Count)
	assert.Equal(t, 2.0, snap.Params.ArrivalMean)
	assert.Equal(t, at.Add(time.Minute), snap.GeneratedAt)

	stats, err := s.ServiceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats.Driver)
	assert.Equal(t, int64(1), stats.Processes)
	assert.Equal(t, int64(2), stats.Generations)
}

func TestReplace_KeepsOrder(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	in := []process.Record{
		{ID: "P9", Priority: "1"},
		{ID: "P2", Priority: "1"},
		{ID: "P5", Priority: "1"},
	}
	require.NoError(t, s.Replace(ctx, in, generator.InputParams{Count: 3}, time.Now()))

	snap, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, snap.Records)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("postgres", "x", time.Second)
	assert.Error(t, err)

	_, err = Open("mysql", "", time.Second)
	assert.Error(t, err)
}

func TestOpen_DefaultsToSQLite(t *testing.T) {
	s, err := Open(" ", "file:defaults?mode=memory&cache=shared", time.Second)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "sqlite", s.Driver())
}
