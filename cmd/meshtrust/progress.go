// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ava-labs/meshtrust"
)

var _ meshtrust.Progress = (*barProgress)(nil)

// barProgress draws one terminal progress bar per task.
type barProgress struct {
	w io.Writer
}

func (p *barProgress) Start(label string, total int64) meshtrust.ProgressTask {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
	return &barTask{bar: bar}
}

type barTask struct {
	bar *progressbar.ProgressBar
}

func (t *barTask) Advance(n int64) {
	_ = t.bar.Add64(n)
}

func (t *barTask) Done() {
	_ = t.bar.Finish()
}

func newProgress(w io.Writer) meshtrust.Progress {
	if flagNoProgress {
		return meshtrust.NoProgress
	}
	return &barProgress{w: w}
}
