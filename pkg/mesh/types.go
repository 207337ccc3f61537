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
// Package mesh detects whether the current event comes from a mesh
// participant by looking for the socket its proxy marks for itself.
package mesh

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"unsafe"
)

const (
	// CurrentNetns scopes a socket lookup to the namespace of the event,
	// as BPF_F_CURRENT_NETNS does.
	CurrentNetns = ^uint32(0)
)

// ErrLookupPrecondition is returned when a socket lookup request is not well
// formed, e.g. no event context or a zero destination port.
var ErrLookupPrecondition = errors.New("socket lookup precondition failed")

// EventContext is the opaque context of the packet or socket event being
// resolved. Socket lookups are scoped by it.
type EventContext interface {
	// NetnsPath names the network namespace of the event; empty means the
	// namespace of the caller.
	NetnsPath() string
}

// SockTupleV4 mirrors the ipv4 half of struct bpf_sock_tuple. Addresses and
// ports are in network order.
type SockTupleV4 struct {
	Saddr uint32
	Daddr uint32
	Sport uint16
	Dport uint16
}

// SizeofSockTupleV4 is the size argument bpf_sk_lookup_tcp expects for an
// ipv4 tuple.
const SizeofSockTupleV4 = uint32(unsafe.Sizeof(SockTupleV4{}))

// Sock is a borrowed socket reference. Release must be called exactly once.
type Sock interface {
	Mark() uint32
	Release()
}

// SockLookuper is the non-blocking tcp socket lookup primitive. It returns
// nil, nil when no socket matches.
type SockLookuper interface {
	LookupTCP(ctx EventContext, tuple *SockTupleV4, tupleSize uint32, netns uint32, flags uint64) (Sock, error)
}

// ProcEvent is the userspace event context for a process: it scopes lookups
// to the network namespace the process lives in.
type ProcEvent struct {
	Pid   int
	netns string
}

func NewProcEvent(hostProc string, pid int) *ProcEvent {
	return &ProcEvent{
		Pid:   pid,
		netns: filepath.Join(hostProc, strconv.Itoa(pid), "ns", "net"),
	}
}

func (e *ProcEvent) NetnsPath() string {
	return e.netns
}

func (e *ProcEvent) String() string {
	return fmt.Sprintf("pid %d (%s)", e.Pid, e.netns)
}

// HostEvent scopes lookups to the namespace of the calling thread.
type HostEvent struct{}

func (HostEvent) NetnsPath() string {
	return ""
}
