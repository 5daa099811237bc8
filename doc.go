//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// Package zipfetcher downloads a ZIP archive from an HTTP(S) URL and
// extracts it into a local directory, reporting progress, completion and
// errors through callbacks.
//
// A Fetcher runs one fetch at a time: a second call while a fetch is in
// flight is rejected. Downloads are spooled to a temporary file by a
// Transport (HTTPTransport by default) and then unpacked by an Extractor
// (ZipExtractor by default).
package zipfetcher
