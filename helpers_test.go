//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	Name    string
	Body    string
	Mode    fs.FileMode
	Deflate bool
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Store}
		if e.Deflate {
			hdr.Method = zip.Deflate
		}
		if e.Mode != 0 {
			hdr.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if e.Body != "" {
			_, err = w.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleZip(t *testing.T) []byte {
	return makeZip(t,
		zipEntry{Name: "readme.txt", Body: "hello from the archive"},
		zipEntry{Name: "docs/"},
		zipEntry{Name: "docs/guide.txt", Body: "guide", Deflate: true},
		zipEntry{Name: "deep/nested/data.bin", Body: "0123456789"},
	)
}

// corruptEntry flips one byte of the stored body of an entry, so that the
// archive opens fine but the entry fails its checksum.
func corruptEntry(t *testing.T, archive []byte, body string) []byte {
	t.Helper()
	res := bytes.Clone(archive)
	idx := bytes.Index(res, []byte(body))
	require.GreaterOrEqual(t, idx, 0)
	res[idx] ^= 0xff
	return res
}

func writeTmpArchive(t *testing.T, data []byte) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(file, data, 0644))
	return file
}

func makeTmpFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "download.bin")
}

func setContentLength(h interface{ Set(string, string) }, size int) {
	h.Set("Content-Length", strconv.Itoa(size))
}
