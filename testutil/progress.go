// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutil

import (
	"sync"

	"github.com/ava-labs/meshtrust"
)

var _ meshtrust.Progress = (*RecordingProgress)(nil)

// RecordingProgress remembers every task started on it.
type RecordingProgress struct {
	lock  sync.Mutex
	tasks []*RecordedTask
}

type RecordedTask struct {
	lock     sync.Mutex
	Label    string
	Total    int64
	Advanced int64
	Finished bool
}

func (p *RecordingProgress) Start(label string, total int64) meshtrust.ProgressTask {
	p.lock.Lock()
	defer p.lock.Unlock()

	task := &RecordedTask{Label: label, Total: total}
	p.tasks = append(p.tasks, task)
	return task
}

// Task returns the first task started with label.
func (p *RecordingProgress) Task(label string) (*RecordedTask, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, task := range p.tasks {
		if task.Label == label {
			return task, true
		}
	}
	return nil, false
}

func (t *RecordedTask) Advance(n int64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.Advanced += n
}

func (t *RecordedTask) Done() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.Finished = true
}
