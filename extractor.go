//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gofrs/flock"
)

// Extractor unpacks the archive stored at archivePath into destination.
type Extractor interface {
	Extract(ctx context.Context, archivePath string, destination string) error
}

// ZipExtractor is the default Extractor.
//
// Entries are written in archive order. If extraction fails, the files and
// directories created by it are removed again; files that already existed
// in the destination and were overwritten are left as they are.
type ZipExtractor struct {
	// Filesystem resolves the destination into the filesystem entries are
	// written to. When nil the destination is a directory on the local
	// disk: it must already exist, and it is locked against concurrent
	// extraction by other processes.
	Filesystem func(destination string) (billy.Filesystem, error)
}

// NewZipExtractor returns a ZipExtractor writing to the local disk.
func NewZipExtractor() *ZipExtractor {
	return &ZipExtractor{}
}

// Extract implements Extractor.
func (e *ZipExtractor) Extract(ctx context.Context, archivePath string, destination string) error {
	if err := checkZipPayload(archivePath); err != nil {
		return err
	}
	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		// entry names are checked by validateEntries
		err = nil
	}
	if err != nil {
		return &Error{Stage: StageExtraction, Code: CodeCorruptArchive, Op: "reading archive", Err: err}
	}
	defer zr.Close()

	if err := validateEntries(zr.File); err != nil {
		return err
	}

	var dst billy.Filesystem
	if e.Filesystem != nil {
		if dst, err = e.Filesystem(destination); err != nil {
			return extractionError("opening destination", err)
		}
	} else {
		if dst, err = osDestination(destination); err != nil {
			return err
		}
		unlock, err := lockDestination(destination)
		if err != nil {
			return err
		}
		defer unlock()
	}

	x := &extraction{ctx: ctx, fs: dst}
	if err := x.run(zr.File); err != nil {
		x.rollback()
		return err
	}
	return nil
}

// checkZipPayload refuses anything that does not look like a ZIP (or a
// format built on top of ZIP, like jar or docx).
func checkZipPayload(archivePath string) error {
	mt, err := mimetype.DetectFile(archivePath)
	if err != nil {
		return extractionError("reading archive", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return nil
		}
	}
	return &Error{
		Stage: StageExtraction,
		Code:  CodeNotArchive,
		Err:   fmt.Errorf("downloaded content is %s, not a ZIP archive", mt.String()),
	}
}

func validateEntries(files []*zip.File) error {
	for _, f := range files {
		if _, err := entryPath(f.Name); err != nil {
			return &Error{Stage: StageExtraction, Code: CodeUnsafePath, Op: f.Name, Err: err}
		}
		mode := f.Mode()
		if !mode.IsDir() && !mode.IsRegular() {
			return &Error{
				Stage: StageExtraction,
				Code:  CodeUnsupportedEntry,
				Op:    f.Name,
				Err:   fmt.Errorf("unsupported entry type %s", mode.Type()),
			}
		}
	}
	return nil
}

// entryPath returns the cleaned, slash separated, relative path of an
// archive entry or an error if it would land outside the destination.
func entryPath(name string) (string, error) {
	if strings.Contains(name, `\`) {
		return "", errors.New("backslash in entry name")
	}
	if path.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.New("absolute entry name")
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("entry escapes the destination")
	}
	return clean, nil
}

func osDestination(destination string) (billy.Filesystem, error) {
	info, err := os.Stat(destination)
	if err != nil {
		return nil, &Error{Stage: StageExtraction, Code: CodeNotWritable, Op: "opening destination", Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{
			Stage: StageExtraction,
			Code:  CodeNotWritable,
			Op:    "opening destination",
			Err:   fmt.Errorf("%s is not a directory", destination),
		}
	}
	return osfs.New(destination), nil
}

// lockDestination takes an inter-process lock keyed on the absolute
// destination path. The lock file lives in the temp dir so nothing is left
// behind in the destination.
func lockDestination(destination string) (func(), error) {
	lockPath, err := destinationLockPath(destination)
	if err != nil {
		return nil, extractionError("locking destination", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, extractionError("locking destination", err)
	}
	if !locked {
		return nil, &Error{
			Stage: StageExtraction,
			Code:  CodeDestinationBusy,
			Op:    "locking destination",
			Err:   fmt.Errorf("%s is being extracted by another process", destination),
		}
	}
	return func() { _ = lock.Unlock() }, nil
}

func destinationLockPath(destination string) (string, error) {
	abs, err := filepath.Abs(destination)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "zipfetcher-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

type extraction struct {
	ctx     context.Context
	fs      billy.Filesystem
	created []string
}

func (x *extraction) run(files []*zip.File) error {
	for _, f := range files {
		if err := x.ctx.Err(); err != nil {
			return &Error{Stage: StageExtraction, Code: CodeCanceled, Err: err}
		}
		name, _ := entryPath(f.Name)
		if name == "." {
			continue
		}
		if f.Mode().IsDir() {
			if err := x.mkdirAll(name); err != nil {
				return extractionError("creating "+name, err)
			}
			continue
		}
		if err := x.mkdirAll(path.Dir(name)); err != nil {
			return extractionError("creating "+path.Dir(name), err)
		}
		if err := x.writeFile(f, name); err != nil {
			return err
		}
	}
	return nil
}

// mkdirAll creates dir one level at a time, remembering the levels it
// created for rollback.
func (x *extraction) mkdirAll(dir string) error {
	if dir == "." {
		return nil
	}
	parts := strings.Split(dir, "/")
	for i := range parts {
		p := strings.Join(parts[:i+1], "/")
		info, err := x.fs.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s exists and is not a directory", p)
			}
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := x.fs.MkdirAll(p, 0755); err != nil {
			return err
		}
		x.created = append(x.created, p)
	}
	return nil
}

func (x *extraction) writeFile(f *zip.File, name string) error {
	rc, err := f.Open()
	if err != nil {
		return &Error{Stage: StageExtraction, Code: CodeCorruptArchive, Op: name, Err: err}
	}
	defer rc.Close()

	existed := false
	if info, err := x.fs.Stat(name); err == nil {
		if info.IsDir() {
			return extractionError(name, fmt.Errorf("%s exists and is a directory", name))
		}
		existed = true
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := x.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return extractionError(name, err)
	}
	if !existed {
		x.created = append(x.created, name)
	}

	in := &entryReader{ctx: x.ctx, r: rc}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	switch {
	case in.err != nil && x.ctx.Err() != nil && errors.Is(in.err, x.ctx.Err()):
		return &Error{Stage: StageExtraction, Code: CodeCanceled, Op: name, Err: in.err}
	case in.err != nil:
		return &Error{Stage: StageExtraction, Code: CodeCorruptArchive, Op: name, Err: in.err}
	case copyErr != nil:
		return extractionError(name, copyErr)
	case closeErr != nil:
		return extractionError(name, closeErr)
	}
	return nil
}

func (x *extraction) rollback() {
	for i := len(x.created) - 1; i >= 0; i-- {
		_ = x.fs.Remove(x.created[i])
	}
	x.created = nil
}

// entryReader records read side failures, so they can be told apart from
// write failures after io.Copy, and stops early when ctx is done.
type entryReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (r *entryReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}
