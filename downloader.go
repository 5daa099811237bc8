//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// ErrRejected is wrapped by the error returned when Config.AcceptFunc
// refuses a response.
var ErrRejected = errors.New("download rejected")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: server returned %s", e.URL, e.Status)
}

// Downloader is an asynchronous downloader
type Downloader struct {
	URL           string
	Done          chan struct{}
	Resp          *http.Response
	out           *os.File
	ctx           context.Context
	wd            *watchdog
	completed     int64
	completedLock sync.Mutex
	size          int64
	err           error
}

// Close the download
func (d *Downloader) Close() error {
	err1 := d.out.Close()
	err2 := d.Resp.Body.Close()
	if err1 != nil {
		return fmt.Errorf("closing output file: %w", err1)
	}
	if err2 != nil {
		return fmt.Errorf("closing input stream: %w", err2)
	}
	return nil
}

// Size return the size of the download (or -1 if the server doesn't provide it)
func (d *Downloader) Size() int64 {
	return d.size
}

// RunAndPoll starts the downloader copy-loop and calls the poll function every
// interval time to update progress. The poll function is always called one
// last time once the copy-loop terminates.
func (d *Downloader) RunAndPoll(poll func(current int64), interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	go d.Run()
	for {
		select {
		case <-t.C:
			poll(d.Completed())
		case <-d.Done:
			poll(d.Completed())
			return d.Error()
		}
	}
}

// Run starts the downloader and waits until it completes the download.
// This method can be run in a goroutine to perform an asynchronous download;
// it will close the Done channel when the download is completed or an error occurs.
func (d *Downloader) Run() error {
	defer close(d.Done)
	defer d.wd.Stop()

	in := d.Resp.Body
	buff := [32 * 1024]byte{}
	for {
		n, err := in.Read(buff[:])
		if n > 0 {
			d.wd.Kick()
			if _, werr := d.out.Write(buff[:n]); werr != nil {
				d.err = fmt.Errorf("writing %s: %w", d.out.Name(), werr)
				break
			}
			d.completedLock.Lock()
			d.completed += int64(n)
			d.completedLock.Unlock()
		}
		if err == io.EOF {
			if completed := d.Completed(); d.size >= 0 && completed != d.size {
				d.err = fmt.Errorf("received %d of %d bytes: %w", completed, d.size, io.ErrUnexpectedEOF)
			}
			break
		}
		if err != nil {
			// Report why the request context went away rather than the
			// generic "context canceled" returned by the body reader.
			if cause := context.Cause(d.ctx); cause != nil {
				err = cause
			}
			d.err = fmt.Errorf("reading response body: %w", err)
			break
		}
	}
	if err := d.Close(); err != nil && d.err == nil {
		d.err = err
	}
	return d.Error()
}

// Error returns the error during download or nil if no errors happened
func (d *Downloader) Error() error {
	return d.err
}

// Completed returns the bytes read so far
func (d *Downloader) Completed() int64 {
	d.completedLock.Lock()
	res := d.completed
	d.completedLock.Unlock()
	return res
}

// Download returns an asynchronous downloader that will download the specified url
// in the specified file.
func Download(file string, reqURL string) (*Downloader, error) {
	return DownloadWithConfig(file, reqURL, GetDefaultConfig())
}

// DownloadWithConfig applies an additional configuration to the http client and
// returns an asynchronous downloader that will download the specified url
// in the specified file.
func DownloadWithConfig(file string, reqURL string, config Config) (*Downloader, error) {
	return DownloadWithConfigAndContext(context.Background(), file, reqURL, config)
}

// DownloadWithConfigAndContext applies an additional configuration to the http client and
// returns an asynchronous downloader that will download the specified url
// in the specified file. The file is truncated if it already exists.
// Responses with a non-2xx status are returned as a *StatusError.
func DownloadWithConfigAndContext(ctx context.Context, file string, reqURL string, config Config) (*Downloader, error) {
	ctx, wd := newWatchdog(ctx, config.InactivityTimeout)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		wd.Stop()
		return nil, fmt.Errorf("setting up HTTP request: %w", err)
	}
	for k, v := range config.ExtraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := config.HttpClient.Do(req)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(cause, os.ErrDeadlineExceeded) {
			err = cause
		}
		wd.Stop()
		return nil, fmt.Errorf("performing GET request: %w", err)
	}

	discard := func() {
		_, _ = io.CopyN(io.Discard, resp.Body, 64*1024)
		_ = resp.Body.Close()
		wd.Stop()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		discard()
		return nil, &StatusError{URL: reqURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if config.AcceptFunc != nil {
		if err := config.AcceptFunc(resp); err != nil {
			discard()
			return nil, fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		_ = resp.Body.Close()
		wd.Stop()
		return nil, fmt.Errorf("opening %s for writing: %w", file, err)
	}

	return &Downloader{
		URL:  reqURL,
		Done: make(chan struct{}),
		Resp: resp,
		out:  f,
		ctx:  ctx,
		wd:   wd,
		size: resp.ContentLength,
	}, nil
}
