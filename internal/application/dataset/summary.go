package dataset

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// SampleRows is how many rows feed the advisor summary.
const SampleRows = 100

// Summary describes the sampled dataset. It is computed once and never mutated.
type Summary struct {
	Count int
	Min   decimal.Decimal
	Max   decimal.Decimal
	Avg   decimal.Decimal
	Top   []Entry
}

type Entry struct {
	Address string
	City    string
	Value   decimal.Decimal
}

// LoadSummary reads the CSV at path and summarizes its first SampleRows rows.
func LoadSummary(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadCSV(f, SampleRows)
	if err != nil {
		return nil, err
	}
	return Summarize(rows), nil
}

// Summarize computes count, range, average and the five most valuable rows.
func Summarize(rows []Row) *Summary {
	s := &Summary{}
	var entries []Entry
	sum := decimal.Zero
	for _, r := range rows {
		v, ok := r.number("ESTIMATED_VALUE")
		if !ok {
			continue
		}
		d := decimal.NewFromFloat(v)
		if s.Count == 0 || d.LessThan(s.Min) {
			s.Min = d
		}
		if s.Count == 0 || d.GreaterThan(s.Max) {
			s.Max = d
		}
		sum = sum.Add(d)
		s.Count++
		if v != 0 {
			entries = append(entries, Entry{Address: r.Address(), City: r["CITY"], Value: d})
		}
	}
	if s.Count > 0 {
		s.Avg = sum.Div(decimal.NewFromInt(int64(s.Count)))
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value.GreaterThan(entries[j].Value) })
	if len(entries) > 5 {
		entries = entries[:5]
	}
	s.Top = entries
	return s
}

// String renders the summary as a single prompt line.
func (s *Summary) String() string {
	if s == nil || s.Count == 0 {
		return ""
	}
	top := make([]string, 0, len(s.Top))
	for _, e := range s.Top {
		addr := e.Address
		if addr == "" {
			addr = "N/A"
		}
		if e.City != "" {
			addr += " - " + e.City
		}
		top = append(top, fmt.Sprintf("%s (%s)", addr, usd(e.Value)))
	}
	return fmt.Sprintf("Dataset summary: %d sampled rows. Estimated value range: %s - %s, avg %s. Top properties: %s.",
		s.Count, usd(s.Min), usd(s.Max), usd(s.Avg), strings.Join(top, "; "))
}

// usd formats whole dollars.
func usd(d decimal.Decimal) string {
	return money.New(d.Round(0).Shift(2).IntPart(), money.USD).Display()
}
