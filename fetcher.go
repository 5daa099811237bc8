//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Callbacks receive the notifications of a fetch. They are called one at a
// time from the goroutine running the fetch. Any of them may be nil.
type Callbacks struct {
	// OnProgress reports the download progress as a fraction in [0, 1].
	// Interim calls have isCompleted set to false; once the download has
	// finished it is called exactly once with (1.0, true).
	OnProgress func(progress float64, isCompleted bool)
	// OnError is called at most once, when the fetch fails. No other
	// callback follows it.
	OnError func(message string)
	// OnComplete is called once the archive has been extracted into
	// destination.
	OnComplete func(destination string)
}

func (cb Callbacks) progress(p float64, completed bool) {
	if cb.OnProgress != nil {
		cb.OnProgress(p, completed)
	}
}

func (cb Callbacks) fail(err error) {
	if cb.OnError != nil {
		cb.OnError(err.Error())
	}
}

func (cb Callbacks) complete(destination string) {
	if cb.OnComplete != nil {
		cb.OnComplete(destination)
	}
}

// Fetcher downloads ZIP archives and extracts them, one at a time.
type Fetcher struct {
	transport Transport
	extractor Extractor
	logger    *slog.Logger
	spoolDir  string

	mu          sync.Mutex
	downloading bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(f *Fetcher) {
		f.transport = t
	}
}

// WithExtractor replaces the default ZIP extractor.
func WithExtractor(e Extractor) Option {
	return func(f *Fetcher) {
		f.extractor = e
	}
}

// WithLogger configures the fetcher with a logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSpoolDir sets the directory downloads are stored in before being
// extracted. It defaults to os.TempDir().
func WithSpoolDir(dir string) Option {
	return func(f *Fetcher) {
		f.spoolDir = dir
	}
}

// New returns a Fetcher. Without options it downloads with an HTTPTransport
// using the default Config and extracts with a ZipExtractor.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	if f.transport == nil {
		f.transport = NewHTTPTransport(GetDefaultConfig())
	}
	if f.extractor == nil {
		f.extractor = NewZipExtractor()
	}
	return f
}

// IsDownloading reports whether a fetch has been accepted and has not yet
// reached its terminal outcome.
func (f *Fetcher) IsDownloading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloading
}

// Fetch starts downloading sourceURL and extracting it into destinationURL
// and returns without waiting for it.
//
// The call is rejected if another fetch is still running or if the
// arguments are malformed: in that case cb.OnError is called before Fetch
// returns, and the same error is returned. Canceling ctx aborts the fetch,
// which then fails with CodeCanceled.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destinationURL string, cb Callbacks) (*Job, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, reqErr := NewRequest(sourceURL, destinationURL)

	f.mu.Lock()
	if f.downloading {
		f.mu.Unlock()
		err := &Error{Stage: StageRequest, Code: CodeBusy, Op: sourceURL, Err: ErrBusy}
		f.logReject(ctx, sourceURL, err)
		cb.fail(err)
		return nil, err
	}
	if reqErr != nil {
		f.mu.Unlock()
		f.logReject(ctx, sourceURL, reqErr)
		cb.fail(reqErr)
		return nil, reqErr
	}
	f.downloading = true
	f.mu.Unlock()

	job := newJob(req)
	if f.logger != nil {
		f.logger.InfoContext(ctx, "fetch accepted",
			"fetch_id", job.ID,
			"source", job.Request.Source.Redacted(),
			"destination", job.Request.Destination)
	}
	go f.run(ctx, job, cb)
	return job, nil
}

func (f *Fetcher) run(ctx context.Context, job *Job, cb Callbacks) {
	defer close(job.done)

	spoolDir := f.spoolDir
	if spoolDir == "" {
		spoolDir = os.TempDir()
	}
	spool := filepath.Join(spoolDir, "zipfetch-"+job.ID+".zip")
	defer os.Remove(spool)

	source := job.Request.Source.String()
	reporter := &progressReporter{fn: cb.OnProgress}
	if err := f.transport.Download(ctx, spool, source, reporter.poll); err != nil {
		f.fail(ctx, job, cb, transportError("", err))
		return
	}
	if f.logger != nil {
		f.logger.DebugContext(ctx, "download complete",
			"fetch_id", job.ID,
			"bytes", reporter.received)
	}
	cb.progress(1.0, true)

	if err := f.extractor.Extract(ctx, spool, job.Request.Destination); err != nil {
		f.fail(ctx, job, cb, extractionError("", err))
		return
	}

	f.release()
	if f.logger != nil {
		f.logger.InfoContext(ctx, "fetch complete",
			"fetch_id", job.ID,
			"destination", job.Request.Destination)
	}
	cb.complete(job.Request.Destination)
}

func (f *Fetcher) fail(ctx context.Context, job *Job, cb Callbacks, err *Error) {
	job.err = err
	f.release()
	if f.logger != nil {
		f.logger.ErrorContext(ctx, "fetch failed",
			"fetch_id", job.ID,
			"stage", string(err.Stage),
			"code", string(err.Code),
			"error", err)
	}
	cb.fail(err)
}

// release clears the busy flag. It runs before the terminal callback so
// that the callback may start a new fetch.
func (f *Fetcher) release() {
	f.mu.Lock()
	f.downloading = false
	f.mu.Unlock()
}

func (f *Fetcher) logReject(ctx context.Context, source string, err error) {
	if f.logger != nil {
		f.logger.WarnContext(ctx, "fetch rejected",
			"source", source,
			"code", string(CodeOf(err)),
			"error", err)
	}
}
