//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Request describes a single fetch. It is not modified once the fetch
// starts.
type Request struct {
	// Source is the http or https URL of the archive.
	Source *url.URL
	// Destination is the local directory the archive is extracted into.
	Destination string
}

// NewRequest validates sourceURL and destinationURL and builds a Request.
// destinationURL may be a plain path or a file:// URL.
func NewRequest(sourceURL, destinationURL string) (Request, error) {
	src, err := parseSource(sourceURL)
	if err != nil {
		return Request{}, &Error{Stage: StageRequest, Code: CodeInvalidInput, Op: "source " + sourceURL, Err: err}
	}
	dst, err := parseDestination(destinationURL)
	if err != nil {
		return Request{}, &Error{Stage: StageRequest, Code: CodeInvalidInput, Op: "destination " + destinationURL, Err: err}
	}
	return Request{Source: src, Destination: dst}, nil
}

func parseSource(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func parseDestination(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty destination")
	}
	if !strings.Contains(raw, "://") {
		return filepath.Clean(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file host %q", u.Host)
	}
	if u.Path == "" {
		return "", errors.New("empty path")
	}
	return filepath.FromSlash(u.Path), nil
}
