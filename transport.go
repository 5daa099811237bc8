//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"context"
)

// Transport downloads sourceURL into file. While downloading it calls poll
// with the number of bytes received so far and the total size, or -1 if
// the size is unknown. poll is called from the goroutine that invoked
// Download.
type Transport interface {
	Download(ctx context.Context, file string, sourceURL string, poll func(current, size int64)) error
}

// HTTPTransport is the default Transport, based on Downloader.
type HTTPTransport struct {
	Config Config
}

// NewHTTPTransport returns a transport using the given configuration.
func NewHTTPTransport(config Config) *HTTPTransport {
	return &HTTPTransport{Config: config}
}

// Download implements Transport.
func (t *HTTPTransport) Download(ctx context.Context, file string, sourceURL string, poll func(current, size int64)) error {
	d, err := DownloadWithConfigAndContext(ctx, file, sourceURL, t.Config)
	if err != nil {
		return err
	}
	size := d.Size()
	return d.RunAndPoll(func(current int64) {
		if poll != nil {
			poll(current, size)
		}
	}, t.Config.pollInterval())
}
