package process

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Columns is the display header of the process table.
var Columns = []string{"Process ID", "Arrival Time", "Burst Time", "Priority"}

// Record is one row of simulated scheduling input.
type Record struct {
	ID          string  `json:"process_id"`
	ArrivalTime float64 `json:"arrival_time"`
	BurstTime   float64 `json:"burst_time"`
	Priority    string  `json:"priority"`
}

// Cells returns the display values of r in column order.
func (r Record) Cells() []string {
	return []string{r.ID, FormatTime(r.ArrivalTime), FormatTime(r.BurstTime), r.Priority}
}

// FormatTime renders a time value with two decimals. Exact ties round
// away from zero, matching Number.prototype.toFixed in the page script.
func FormatTime(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= 1e21 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// v*100 + 0.5 is exact at this precision for |v| < 1e21.
	f := new(big.Float).SetPrec(200).SetFloat64(v)
	f.Mul(f, big.NewFloat(100))
	f.Add(f, big.NewFloat(0.5))
	n, _ := f.Int(nil)

	digits := n.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
}

// Format serializes records as a whitespace-delimited table with a header
// line, the layout served by the processes endpoint.
func Format(records []Record) string {
	var b strings.Builder
	for _, c := range Columns {
		b.WriteString(pad(c))
	}
	b.WriteString("\n")
	for _, r := range records {
		b.WriteString(pad(r.ID))
		b.WriteString(pad(strconv.FormatFloat(r.ArrivalTime, 'f', -1, 64)))
		b.WriteString(pad(strconv.FormatFloat(r.BurstTime, 'f', -1, 64)))
		b.WriteString(pad(r.Priority))
		b.WriteString("\n")
	}
	return b.String()
}

func pad(v string) string {
	const width = 15
	if len(v) >= width {
		return v + " "
	}
	return v + strings.Repeat(" ", width-len(v))
}
