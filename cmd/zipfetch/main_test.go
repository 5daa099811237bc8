//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package main

import (
	"archive/zip"
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testArchive(t *testing.T) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("hello/world.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testServer(t *testing.T) *httptest.Server {
	archive := testArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.zip" || r.Header.Get("Authorization") != "Bearer token" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunExtracts(t *testing.T) {
	srv := testServer(t)
	dest := t.TempDir()
	var stderr bytes.Buffer

	code := run([]string{"-header", "Authorization=Bearer token", srv.URL + "/a.zip", dest}, &stderr)
	require.Equal(t, 0, code, stderr.String())
	data, err := os.ReadFile(filepath.Join(dest, "hello", "world.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
	require.Contains(t, stderr.String(), "extracted into")
}

func TestRunReportsErrors(t *testing.T) {
	srv := testServer(t)
	var stderr bytes.Buffer

	code := run([]string{"-quiet", srv.URL + "/a.zip", t.TempDir()}, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "fetch failed")
	require.Contains(t, stderr.String(), "HTTP_STATUS")
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	require.Equal(t, 2, run([]string{"only-one-arg"}, &stderr))
	require.Contains(t, stderr.String(), "usage: zipfetch")
}

func TestRunWithConfigFile(t *testing.T) {
	srv := testServer(t)
	dest := t.TempDir()
	cfgFile := filepath.Join(t.TempDir(), "zipfetch.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("headers:\n  Authorization: Bearer token\nlog_level: debug\n"), 0644))
	var stderr bytes.Buffer

	code := run([]string{"-config", cfgFile, "-quiet", srv.URL + "/a.zip", dest}, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stderr.String(), "download complete")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "zipfetch.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
inactivity_timeout: 30s
poll_interval: 250ms
timeout: 5m
headers:
  User-Agent: zipfetch
log_level: warn
spool_dir: /var/tmp
`), 0644))

	cfg, err := loadConfigFile(file)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.InactivityTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 5*time.Minute, cfg.Timeout)
	require.Equal(t, map[string]string{"User-Agent": "zipfetch"}, cfg.Headers)
	require.Equal(t, "/var/tmp", cfg.SpoolDir)

	level, err := parseLogLevel(cfg.LogLevel)
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	cfg, err = loadConfigFile(empty)
	require.NoError(t, err)
	require.Zero(t, cfg.Timeout)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("retries: 3\n"), 0644))
	_, err = loadConfigFile(unknown)
	require.Error(t, err)
}

func TestHeaderFlags(t *testing.T) {
	h := headerFlags{}
	require.NoError(t, h.Set("Accept = application/zip"))
	require.Equal(t, "application/zip", h["Accept"])
	require.Error(t, h.Set("no-equals-sign"))
	require.Error(t, h.Set("=value"))
}
