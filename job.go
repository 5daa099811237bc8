//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

import (
	"github.com/google/uuid"
)

// Job is the handle of an accepted fetch.
type Job struct {
	// ID identifies the fetch in logs and spool file names.
	ID      string
	Request Request

	done chan struct{}
	err  error
}

func newJob(req Request) *Job {
	src := *req.Source
	return &Job{
		ID:      uuid.NewString(),
		Request: Request{Source: &src, Destination: req.Destination},
		done:    make(chan struct{}),
	}
}

// Done is closed once the fetch has reached its terminal outcome and the
// terminal callback has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the error the fetch failed with. It is nil while the fetch
// is running and after a successful fetch.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the fetch is done and returns its error.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}
