//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package zipfetcher

// progressReporter turns byte counts into interim progress notifications.
// Only strictly increasing fractions below 1 are forwarded; the 1.0 value
// is reserved for the completion call. Nothing is reported when the size
// is unknown.
type progressReporter struct {
	fn       func(progress float64, isCompleted bool)
	last     float64
	received int64
}

func (r *progressReporter) poll(current, size int64) {
	r.received = current
	if r.fn == nil || size <= 0 {
		return
	}
	p := float64(current) / float64(size)
	if p >= 1 || p <= r.last {
		return
	}
	r.last = p
	r.fn(p, false)
}
