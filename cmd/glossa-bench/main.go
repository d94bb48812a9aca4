// glossa-bench is a benchmark and stress test for the glossa engine. It
// builds large in-memory documents and measures discovery sweeps,
// translation throughput, mutation handling, staleness churn and lazy
// viewport reveal.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/calyptra/glossa"
	"github.com/calyptra/glossa/translate"
)

const (
	sweepRows    = 2000
	sweepPerRow  = 4
	stormRounds  = 20
	stormTargets = 200
	churnEdits   = 50
	churnTargets = 40
	lazyRows     = 2000
	rowHeight    = 40
	viewportW    = 1280
	viewportH    = 720
	backendLimit = 16
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec) %s", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec)", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec)
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Millisecond), r.Extra)
	}
	return fmt.Sprintf("%-40s %12v", r.Name, r.Duration.Round(time.Millisecond))
}

func main() {
	fmt.Println("Glossa Benchmark and Stress Test")
	fmt.Println("================================")
	fmt.Printf("Document size: %d rows x %d texts\n", sweepRows, sweepPerRow)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	var results []BenchResult
	runBench := func(name string, fn func() BenchResult) {
		fmt.Printf("  %-40s ", name+"...")
		result := fn()
		fmt.Printf("%v\n", result.Duration.Round(time.Millisecond))
		results = append(results, result)
	}

	fmt.Println("Running benchmarks...")
	fmt.Println()

	fmt.Println("Discovery and translation:")
	runBench("Initial sweep (instant backend)", benchDiscovery)
	runBench("Initial sweep (limited backend)", benchBoundedBackend)

	fmt.Println("\nMutation handling:")
	runBench("Mutation storm", benchMutationStorm)
	runBench("Staleness churn (slow backend)", benchStalenessChurn)

	fmt.Println("\nViewport gating:")
	runBench("Lazy reveal by scrolling", benchLazyReveal)

	fmt.Println("\nStatus reporting:")
	runBench("Throttled status publishes", benchStatusThrottle)

	fmt.Println()
	fmt.Println("SUMMARY")
	fmt.Println("=======")
	for _, r := range results {
		fmt.Println(r)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Println()
	fmt.Printf("Peak heap allocation: %d MB\n", m.HeapSys/(1024*1024))
	fmt.Printf("Total allocations: %d MB\n", m.TotalAlloc/(1024*1024))
}

// countTranslator uppercases instantly and counts calls.
type countTranslator struct {
	calls atomic.Int64
}

func (c *countTranslator) Translate(_ context.Context, text string, _ int) (string, error) {
	c.calls.Add(1)
	return strings.ToUpper(text), nil
}

func eagerConfig() glossa.Config {
	cfg := glossa.DefaultConfig()
	cfg.Lazy = false
	return cfg
}

// buildRows fills the document body with row divs, each carrying a title
// attribute and perRow text children. With geometry on, row i sits at
// y = i*rowHeight so only the first screenful starts visible.
func buildRows(d *glossa.MemDoc, rows, perRow int, geometry bool) [][]*glossa.MemText {
	texts := make([][]*glossa.MemText, rows)
	for i := 0; i < rows; i++ {
		row := d.NewElement("div")
		if geometry {
			row.SetBounds(glossa.Rect{X: 0, Y: i * rowHeight, W: viewportW, H: rowHeight})
		}
		row.SetAttr("title", fmt.Sprintf("fila %d", i))
		for j := 0; j < perRow; j++ {
			txt := d.NewText(fmt.Sprintf("texto %d-%d", i, j))
			row.Append(txt)
			texts[i] = append(texts[i], txt)
		}
		d.Body().Append(row)
	}
	return texts
}

func mustEngine(tr glossa.Translator, d *glossa.MemDoc, cfg glossa.Config) *glossa.Engine {
	e, err := glossa.New(d, tr, cfg)
	if err != nil {
		fmt.Printf("Failed to create engine: %v\n", err)
		os.Exit(1)
	}
	return e
}

func benchDiscovery() BenchResult {
	d := glossa.NewMemDoc()
	buildRows(d, sweepRows, sweepPerRow, false)

	tr := &countTranslator{}
	e := mustEngine(tr, d, eagerConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{})

	start := time.Now()
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Initial sweep (instant backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	if err := s.WaitIdle(time.Minute); err != nil {
		return BenchResult{Name: "Initial sweep (instant backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	return BenchResult{
		Name:     "Initial sweep (instant backend)",
		Duration: dur,
		Ops:      st.Resolved,
		Extra:    fmt.Sprintf("%d calls", tr.calls.Load()),
	}
}

func benchBoundedBackend() BenchResult {
	d := glossa.NewMemDoc()
	buildRows(d, sweepRows/4, sweepPerRow, false)

	tr := translate.Limit(translate.Delay(translate.Marked("«", "»"), time.Millisecond), backendLimit)
	e := mustEngine(tr, d, eagerConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{})

	start := time.Now()
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Initial sweep (limited backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	if err := s.WaitIdle(time.Minute); err != nil {
		return BenchResult{Name: "Initial sweep (limited backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	return BenchResult{
		Name:     "Initial sweep (limited backend)",
		Duration: dur,
		Ops:      st.Resolved,
		Extra:    fmt.Sprintf("%d in flight max", backendLimit),
	}
}

func benchMutationStorm() BenchResult {
	d := glossa.NewMemDoc()
	texts := buildRows(d, stormTargets, 1, false)

	tr := &countTranslator{}
	e := mustEngine(tr, d, eagerConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Mutation storm", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	if err := s.WaitIdle(time.Minute); err != nil {
		return BenchResult{Name: "Mutation storm", Extra: fmt.Sprintf("ERROR: %v", err)}
	}

	start := time.Now()
	for round := 0; round < stormRounds; round++ {
		for i := 0; i < stormTargets; i++ {
			texts[i][0].SetText(fmt.Sprintf("ronda %d texto %d", round, i))
		}
		if err := s.WaitIdle(time.Minute); err != nil {
			return BenchResult{Name: "Mutation storm", Extra: fmt.Sprintf("ERROR: %v", err)}
		}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	return BenchResult{
		Name:     "Mutation storm",
		Duration: dur,
		Ops:      stormRounds * stormTargets,
		Extra:    fmt.Sprintf("%d resolved", st.Resolved),
	}
}

func benchStalenessChurn() BenchResult {
	d := glossa.NewMemDoc()
	texts := buildRows(d, churnTargets, 1, false)

	tr := translate.Delay(translate.Marked("«", "»"), 2*time.Millisecond)
	e := mustEngine(tr, d, eagerConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Staleness churn (slow backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}

	// Edit every target repeatedly without waiting, so most in-flight
	// results land stale and are discarded.
	start := time.Now()
	for round := 0; round < churnEdits; round++ {
		for i := 0; i < churnTargets; i++ {
			texts[i][0].SetText(fmt.Sprintf("iteracion %d-%d", round, i))
		}
	}
	if err := s.WaitIdle(time.Minute); err != nil {
		return BenchResult{Name: "Staleness churn (slow backend)", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	return BenchResult{
		Name:     "Staleness churn (slow backend)",
		Duration: dur,
		Ops:      churnEdits * churnTargets,
		Extra:    fmt.Sprintf("%d discarded, %d resolved", st.Discarded, st.Resolved),
	}
}

func benchLazyReveal() BenchResult {
	d := glossa.NewMemDoc()
	buildRows(d, lazyRows, sweepPerRow, true)

	tr := &countTranslator{}
	e := mustEngine(tr, d, glossa.DefaultConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{})
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Lazy reveal by scrolling", Extra: fmt.Sprintf("ERROR: %v", err)}
	}

	// Scroll the viewport down a screenful at a time until every row has
	// been revealed.
	start := time.Now()
	total := lazyRows * rowHeight
	for y := 0; y < total; y += viewportH {
		d.SetViewport(glossa.Rect{X: 0, Y: y, W: viewportW, H: viewportH})
		if err := s.WaitIdle(time.Minute); err != nil {
			return BenchResult{Name: "Lazy reveal by scrolling", Extra: fmt.Sprintf("ERROR: %v", err)}
		}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	return BenchResult{
		Name:     "Lazy reveal by scrolling",
		Duration: dur,
		Ops:      st.Resolved,
		Extra:    fmt.Sprintf("%d rows", lazyRows),
	}
}

func benchStatusThrottle() BenchResult {
	d := glossa.NewMemDoc()
	buildRows(d, sweepRows/2, sweepPerRow, false)

	var publishes atomic.Int64
	tr := &countTranslator{}
	e := mustEngine(tr, d, eagerConfig())
	defer e.Close()
	s := glossa.NewSession(e, glossa.SessionOptions{
		Status:         func(glossa.Stats) { publishes.Add(1) },
		StatusInterval: 10 * time.Millisecond,
	})

	start := time.Now()
	if err := s.Start(d.Body()); err != nil {
		return BenchResult{Name: "Throttled status publishes", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	if err := s.WaitIdle(time.Minute); err != nil {
		return BenchResult{Name: "Throttled status publishes", Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	dur := time.Since(start)
	st := s.Stats()
	s.Stop()
	time.Sleep(20 * time.Millisecond)
	return BenchResult{
		Name:     "Throttled status publishes",
		Duration: dur,
		Ops:      st.Resolved,
		Extra:    fmt.Sprintf("%d publishes for %d outcomes", publishes.Load(), st.Resolved),
	}
}
