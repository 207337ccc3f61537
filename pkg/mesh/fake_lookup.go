/*
 * Copyright The Kmesh Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at:
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package mesh

import (
	"sync"
	"sync/atomic"
)

// FakeSockLookuper answers socket lookups from a table of marks keyed by
// netns path. It counts lookups and releases so tests can check that every
// reference is dropped.
type FakeSockLookuper struct {
	mu    sync.Mutex
	marks map[string]uint32
	err   error

	Lookups  atomic.Int64
	Acquired atomic.Int64
	Released atomic.Int64
}

func NewFakeSockLookuper() *FakeSockLookuper {
	return &FakeSockLookuper{
		marks: make(map[string]uint32),
	}
}

// SetMark makes a marked socket visible in netns.
func (f *FakeSockLookuper) SetMark(netns string, mark uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks[netns] = mark
}

func (f *FakeSockLookuper) RemoveMark(netns string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.marks, netns)
}

// SetError makes every following lookup fail with err.
func (f *FakeSockLookuper) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeSockLookuper) LookupTCP(ctx EventContext, tuple *SockTupleV4, tupleSize uint32, netns uint32, flags uint64) (Sock, error) {
	f.Lookups.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	mark, ok := f.marks[ctx.NetnsPath()]
	if !ok {
		return nil, nil
	}
	f.Acquired.Add(1)
	return &fakeSock{mark: mark, owner: f}, nil
}

// Outstanding is the number of references handed out and not yet released.
func (f *FakeSockLookuper) Outstanding() int64 {
	return f.Acquired.Load() - f.Released.Load()
}

type fakeSock struct {
	mark     uint32
	owner    *FakeSockLookuper
	released atomic.Bool
}

func (s *fakeSock) Mark() uint32 {
	return s.mark
}

func (s *fakeSock) Release() {
	if s.released.Swap(true) {
		panic("socket released twice")
	}
	s.owner.Released.Add(1)
}

// NetnsEvent is an EventContext naming a namespace directly.
type NetnsEvent string

func (e NetnsEvent) NetnsPath() string {
	return string(e)
}
