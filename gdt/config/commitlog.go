/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	libatm "github.com/minkfabric/mink/atomic"
	"github.com/minkfabric/mink/gdt"
)

// commitLogTimeFormat encodes a commit's timestamp into a name that sorts
// lexically in chronological order; a per-process sequence number breaks
// ties between commits landing in the same nanosecond.
const commitLogTimeFormat = "20060102T150405.000000000Z"

// CommitLog writes every committed config transaction to a file under Dir
// (spec §6 "Commit log") and reads them back most-recent-first for
// rollback.
type CommitLog struct {
	Dir string
	seq *libatm.Sequence
}

// NewCommitLog returns a CommitLog rooted at dir, creating it if absent.
func NewCommitLog(dir string) (*CommitLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, gdt.ErrConfigCommitLog.Errorf("create commit-log directory: %s", err.Error())
	}
	return &CommitLog{Dir: dir, seq: libatm.NewSequence()}, nil
}

// Write appends a committed transaction. The filename encodes the commit
// timestamp so ReadAll can order entries without parsing file contents.
func (l *CommitLog) Write(m Message) (string, error) {
	seq := l.seq.Next()
	name := time.Now().UTC().Format(commitLogTimeFormat) + "." + strconv.FormatUint(seq, 10) + ".ber"
	path := filepath.Join(l.Dir, name)

	if err := os.WriteFile(path, Encode(m), 0o644); err != nil {
		return "", gdt.ErrConfigCommitLog.Errorf("write commit %q: %s", name, err.Error())
	}
	return name, nil
}

// ReadAll returns every committed transaction, most-recent-first (spec §6
// "files are read back in timestamp order (most recent first) on
// rollback").
func (l *CommitLog) ReadAll() ([]Message, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, gdt.ErrConfigCommitLog.Errorf("list commit-log directory: %s", err.Error())
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	out := make([]Message, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			return nil, gdt.ErrConfigCommitLog.Errorf("read commit %q: %s", name, err.Error())
		}
		m, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
