package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Follower tails a transcript that is still being written.
//
// Complete lines are decoded as they appear. A streamed call whose chunks
// arrive across separate writes is delivered as consecutive calls sharing
// the same id.
type Follower struct {
	path    string
	offset  int64
	partial []byte
	dec     Decoder
}

// NewFollower returns a follower for path. When fromStart is false, content
// already in the file is skipped.
func NewFollower(path string, fromStart bool) (*Follower, error) {
	f := &Follower{path: path}
	if fromStart {
		return f, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("stat transcript: %w", err)
	}
	f.offset = info.Size()
	return f, nil
}

// ParseErrors returns the number of malformed lines seen so far.
func (f *Follower) ParseErrors() int { return f.dec.ParseErrors }

// Poll reads everything appended since the last poll and returns the calls
// it contains. A truncated file is read again from the start.
func (f *Follower) Poll() ([]Call, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < f.offset {
		log.WithField("path", f.path).Debug("source: transcript truncated, rereading")
		f.offset = 0
		f.partial = nil
		f.dec.pending = nil
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	var calls []Call
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		calls = append(calls, f.dec.Feed(buf[:i])...)
		buf = buf[i+1:]
	}
	f.partial = append([]byte(nil), buf...)

	return append(calls, f.dec.Flush()...), nil
}

// Run polls once, then again on every write to the transcript, passing
// new calls to fn. It blocks until ctx is cancelled.
func (f *Follower) Run(ctx context.Context, fn func([]Call)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so the file may be created or replaced later.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(f.path), err)
	}

	poll := func() {
		calls, err := f.Poll()
		if err != nil {
			log.WithError(err).WithField("path", f.path).Warn("source: reading transcript")
			return
		}
		if len(calls) > 0 {
			fn(calls)
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				poll()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.WithError(err).Warn("source: watcher error")
		}
	}
}
