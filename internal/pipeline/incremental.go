package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/theirongolddev/agentcost/internal/source"
	"github.com/theirongolddev/agentcost/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	Pruned    int // tracked files no longer on disk
}

// LoadWithCache discovers transcripts, diffs them against the cache, parses
// only changed files and prices the combined set. Cache rows for files that
// have disappeared are pruned. Costs are never cached.
func LoadWithCache(dir string, calc *Calculator, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &CachedLoadResult{LoadResult: LoadResult{TotalFiles: len(files)}}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}
	}
	stale := make(map[string]struct{})
	for path := range tracked {
		if _, ok := present[path]; !ok {
			stale[path] = struct{}{}
		}
	}

	var toReparse []source.DiscoveredFile
	unchanged := make(map[string]struct{})

	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}

		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == info.ModTime().UnixNano() && cached.SizeBytes == info.Size() {
			unchanged[f.Path] = struct{}{}
		} else {
			toReparse = append(toReparse, f)
		}
	}

	result.CacheHits = len(unchanged)
	result.Reparsed = len(toReparse)

	if len(unchanged) > 0 || len(stale) > 0 {
		cached, err := cache.LoadAllTranscripts()
		if err != nil {
			return nil, fmt.Errorf("loading cached transcripts: %w", err)
		}
		for _, t := range cached {
			if _, ok := stale[t.FilePath]; ok {
				if err := cache.DeleteTranscript(t.SessionID); err != nil {
					log.WithError(err).WithField("path", t.FilePath).Warn("pipeline: pruning cached transcript")
				}
				continue
			}
			if _, ok := unchanged[t.FilePath]; !ok {
				continue
			}
			result.ParsedFiles++
			result.ParseErrors += t.ParseErrors
			if len(t.Records) > 0 {
				result.Sessions = append(result.Sessions, calc.PriceTranscript(t))
			}
		}
	}

	for path := range stale {
		if err := cache.DeleteFileTracker(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("pipeline: pruning file tracker")
		}
	}
	result.Pruned = len(stale)

	if len(toReparse) == 0 {
		return result, nil
	}

	results := parseFiles(toReparse, func(n int) {
		if progressFn != nil {
			progressFn(n+result.CacheHits, result.TotalFiles)
		}
	})

	for i, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors

		t := TranscriptFromParse(toReparse[i], pr)
		if len(t.Records) > 0 {
			result.Sessions = append(result.Sessions, calc.PriceTranscript(t))
		}

		info, err := os.Stat(toReparse[i].Path)
		if err != nil {
			continue
		}
		if err := cache.SaveTranscript(t, info.ModTime().UnixNano(), info.Size()); err != nil {
			log.WithError(err).WithField("path", t.FilePath).Warn("pipeline: caching transcript")
		}
	}

	return result, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentcost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "agentcost")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "usage.db")
}
