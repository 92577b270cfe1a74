/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package context

import (
	libatm "github.com/minkfabric/mink/atomic"
)

// Well-known keys for the Config[string] daemon handle a mink-routingd or
// mink-configd process builds at startup and threads through Session (spec
// §9's redesign of the original process-wide current-daemon singleton into
// an explicit handle). Session.Context() returns this same handle to
// callbacks, so anything stored here at startup is visible anywhere a
// Client or stream callback can reach its Session.
const (
	KeyDaemonType   = "daemon.type"
	KeyDaemonID     = "daemon.id"
	KeyDaemonDebug  = "daemon.debug"
	KeySchemaFile   = "daemon.schema_file"
	KeyContentsFile = "daemon.contents_file"
)

// PutString stores a non-empty string under key, skipping the interface{}
// boxing every call site would otherwise repeat. Empty values are left
// unstored, so GetString reports ok=false both for a key that was never
// configured and for one configured as empty.
func PutString(cfg Config[string], key, value string) {
	if value == "" {
		return
	}
	cfg.Store(key, value)
}

// GetString loads a string previously stored with PutString or Store. ok is
// false if key was never stored, or the stored value isn't a non-empty string.
func GetString(cfg Config[string], key string) (value string, ok bool) {
	v, found := cfg.Load(key)
	if !found {
		return "", false
	}
	return libatm.Cast[string](v)
}

// GetBool loads a bool previously stored with Store. ok is false if key was
// never stored, or the stored value isn't a bool.
func GetBool(cfg Config[string], key string) (value bool, ok bool) {
	v, found := cfg.Load(key)
	if !found {
		return false, false
	}
	value, ok = v.(bool)
	return value, ok
}
