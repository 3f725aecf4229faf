package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/source"
	"github.com/theirongolddev/agentcost/internal/store"
)

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Sessions    []model.SessionCost
	TotalFiles  int
	ParsedFiles int
	ParseErrors int
	FileErrors  int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers, parses and prices every transcript under dir.
// It uses a bounded worker pool for parallel parsing.
func Load(dir string, calc *Calculator, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &LoadResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	results := parseFiles(files, func(n int) {
		if progressFn != nil {
			progressFn(n, len(files))
		}
	})

	for i, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors

		t := TranscriptFromParse(files[i], pr)
		if len(t.Records) > 0 {
			result.Sessions = append(result.Sessions, calc.PriceTranscript(t))
		}
	}

	return result, nil
}

// parseFiles parses files on GOMAXPROCS workers. Results keep input order.
func parseFiles(files []source.DiscoveredFile, onDone func(n int)) []source.ParseResult {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if onDone != nil {
					onDone(int(n))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// TranscriptFromParse flattens parsed calls into usage records.
func TranscriptFromParse(df source.DiscoveredFile, pr source.ParseResult) store.Transcript {
	t := store.Transcript{
		SessionID:   df.SessionID,
		FilePath:    df.Path,
		StartTime:   pr.StartTime,
		EndTime:     pr.EndTime,
		ParseErrors: pr.ParseErrors,
	}
	ids := make(map[string]struct{})
	for _, c := range pr.Calls {
		ids[c.ID] = struct{}{}
		t.Records = append(t.Records, c.UsageRecords()...)
	}
	t.Calls = len(ids)
	return t
}

// PriceTranscript prices every usage record of a transcript. Records for
// unpriced models are counted but contribute no cost.
func (c *Calculator) PriceTranscript(t store.Transcript) model.SessionCost {
	s := model.SessionCost{
		SessionID: t.SessionID,
		FilePath:  t.FilePath,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Calls:     t.Calls,
		Records:   len(t.Records),
	}
	for _, r := range t.Records {
		s.Usage = s.Usage.Add(r.Usage)
		b, ok := c.Breakdown(r.Model, r.Usage)
		if !ok {
			s.Unpriced++
			continue
		}
		s.Breakdowns = append(s.Breakdowns, b)
		s.TotalCost += b.TotalCost
	}
	return s
}
