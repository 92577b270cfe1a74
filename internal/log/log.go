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

// Package log is the structured logging adapter the daemon binaries log
// through (the gdt/ subpackages do not log), built on logrus (teacher: nabbar-golib's
// logger package, whose Fields builder this mirrors) with one addition
// the teacher's logger doesn't need: rate-limited warnings for the
// per-node decode tolerances and pool-exhaustion events spec.md §8
// scenario 5 calls out ("logs a rate-limited warning").
package log

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a small immutable builder over logrus.Fields, mirroring the
// teacher's logger.Fields (nabbar-golib/logger/fields.go): Add/Merge
// return a new map rather than mutating the receiver, so a base Fields
// value can be shared across goroutines and extended per call site.
type Fields map[string]any

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return make(Fields)
}

func (f Fields) clone() Fields {
	res := make(Fields, len(f))
	for k, v := range f {
		res[k] = v
	}
	return res
}

// Add returns a copy of f with key set to val.
func (f Fields) Add(key string, val any) Fields {
	res := f.clone()
	res[key] = val
	return res
}

// Merge returns a copy of f with every key of other overlaid on top.
func (f Fields) Merge(other Fields) Fields {
	if len(other) == 0 {
		return f
	}
	res := f.clone()
	for k, v := range other {
		res[k] = v
	}
	return res
}

func (f Fields) toLogrus() logrus.Fields {
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// rateLimiter is the shared, mutex-guarded state backing WarnRateLimited.
// It is held by pointer so every Logger derived from the same root via
// With shares one set of rate-limit windows instead of each clone
// guarding the same map with an independent, un-synchronized mutex.
type rateLimiter struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// Logger wraps a logrus.Entry, carrying the fields accumulated by With.
type Logger struct {
	entry *logrus.Entry
	rl    *rateLimiter
}

// New builds a Logger writing JSON lines to stderr (teacher's default
// output target), at Debug level when debug is set, Info otherwise (spec
// §6 process interface's `-D` debug flag).
func New(debug bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{entry: logrus.NewEntry(l), rl: &rateLimiter{seen: make(map[string]time.Time)}}
}

// With returns a Logger carrying fields in addition to any already set.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields.toLogrus()), rl: l.rl}
}

func (l *Logger) Debug(msg string) { l.entry.Debug(msg) }
func (l *Logger) Info(msg string)  { l.entry.Info(msg) }
func (l *Logger) Warn(msg string)  { l.entry.Warn(msg) }

// Error logs err at Error level under the "error" field, matching spec §7's
// "transport/registration = Error" category mapping.
func (l *Logger) Error(err error) {
	l.entry.WithError(err).Error(err.Error())
}

// Fatal logs msg at Fatal level and terminates the process, for the
// fatal-only exceptions of spec §7 (OOM at session construction,
// unrecoverable pool corruption).
func (l *Logger) Fatal(msg string) {
	l.entry.Fatal(msg)
}

// WarnRateLimited logs msg at Warn level at most once per every interval
// for a given key, dropping repeats silently in between (spec §8 scenario
// 5: "logs a rate-limited warning" for a dropped late reply; spec §7's
// resource-error category: "log a rate-limited warning" on pool
// exhaustion).
func (l *Logger) WarnRateLimited(key string, every time.Duration, msg string) {
	l.rl.mu.Lock()
	last, seen := l.rl.seen[key]
	now := time.Now()
	if seen && now.Sub(last) < every {
		l.rl.mu.Unlock()
		return
	}
	l.rl.seen[key] = now
	l.rl.mu.Unlock()

	l.entry.WithField("rate_limit_key", key).Warn(msg)
}
