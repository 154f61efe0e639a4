// Package generator produces random process tables for the backend.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"go-process-table-ui/internal/process"
)

// Limits bound the generated values. Ranges are inclusive.
type Limits struct {
	MinProcesses, MaxProcesses int
	MinArrival, MaxArrival     int
	MinBurst, MaxBurst         int
	MinLambda, MaxLambda       float64
	MinPriority                int
}

// DefaultLimits are the ranges of the classroom generator.
var DefaultLimits = Limits{
	MinProcesses: 3, MaxProcesses: 10,
	MinArrival: 0, MaxArrival: 15,
	MinBurst: 1, MaxBurst: 25,
	MinLambda: 4, MaxLambda: 10,
	MinPriority: 1,
}

// InputParams summarizes one generation.
type InputParams struct {
	Count          int     `json:"count"`
	ArrivalMean    float64 `json:"arrival_mean"`
	ArrivalStd     float64 `json:"arrival_std"`
	BurstMean      float64 `json:"burst_mean"`
	BurstStd       float64 `json:"burst_std"`
	LambdaPriority float64 `json:"lambda_priority"`
}

// String renders the parameter summary served on the input data endpoint.
func (p InputParams) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nProcesses Number: %d\n", p.Count)
	fmt.Fprintf(&b, "Mean and Standard Deviation for Arrival Time: (%.1f, %.1f)\n", p.ArrivalMean, p.ArrivalStd)
	fmt.Fprintf(&b, "Mean and Standard Deviation for Burst Time: (%.1f, %.1f)\n", p.BurstMean, p.BurstStd)
	fmt.Fprintf(&b, "Lambda Priority: %.1f\n", p.LambdaPriority)
	return b.String()
}

// Generator draws process tables from a random source.
type Generator struct {
	rng    *rand.Rand
	limits Limits
}

// New returns a Generator. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand, limits Limits) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng, limits: limits}
}

// Generate draws a table. Ids are P1..Pn; priorities follow a Poisson
// distribution around a lambda drawn from the limits, floored at
// MinPriority. Not safe for concurrent use.
func (g *Generator) Generate() ([]process.Record, InputParams) {
	l := g.limits
	n := g.intBetween(l.MinProcesses, l.MaxProcesses)
	lambda := l.MinLambda + g.rng.Float64()*(l.MaxLambda-l.MinLambda)

	records := make([]process.Record, 0, n)
	arrivals := make([]float64, 0, n)
	bursts := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		arrival := float64(g.intBetween(l.MinArrival, l.MaxArrival))
		burst := float64(g.intBetween(l.MinBurst, l.MaxBurst))
		priority := g.poisson(lambda)
		if priority < l.MinPriority {
			priority = l.MinPriority
		}
		records = append(records, process.Record{
			ID:          "P" + strconv.Itoa(i),
			ArrivalTime: arrival,
			BurstTime:   burst,
			Priority:    strconv.Itoa(priority),
		})
		arrivals = append(arrivals, arrival)
		bursts = append(bursts, burst)
	}

	am, as := meanStd(arrivals)
	bm, bs := meanStd(bursts)
	return records, InputParams{
		Count:          n,
		ArrivalMean:    am,
		ArrivalStd:     as,
		BurstMean:      bm,
		BurstStd:       bs,
		LambdaPriority: math.Round(lambda*10) / 10,
	}
}

func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// poisson uses Knuth's multiplication method; lambda stays small here.
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// meanStd returns the mean and population standard deviation.
func meanStd(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	mean := sum / float64(len(vs))
	sq := 0.0
	for _, v := range vs {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vs)))
}
