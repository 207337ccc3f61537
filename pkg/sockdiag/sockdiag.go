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
// Package sockdiag implements the mark socket lookup from userspace with a
// NETLINK_SOCK_DIAG dump run inside the event's network namespace. Reading
// socket marks this way needs CAP_NET_ADMIN.
package sockdiag

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"kmesh.net/cgmesh/pkg/logger"
	"kmesh.net/cgmesh/pkg/mesh"
	"kmesh.net/cgmesh/pkg/nets"
)

var log = logger.NewLoggerScope("sockdiag")

const (
	sockDiagByFamily = 20

	sizeofSockID  = 48
	sizeofReqV2   = 8 + sizeofSockID
	sizeofDiagMsg = 4 + sizeofSockID + 20

	inetDiagMark     = 15
	inetDiagNoCookie = ^uint32(0)

	tcpEstablished = 1
	tcpListen      = 10
)

// sockID mirrors struct inet_diag_sockid.
type sockID struct {
	sport  uint16
	dport  uint16
	src    netip.Addr
	dst    netip.Addr
	ifidx  uint32
	cookie [2]uint32
}

// reqV2 mirrors struct inet_diag_req_v2.
type reqV2 struct {
	family   uint8
	protocol uint8
	ext      uint8
	states   uint32
	id       sockID
}

func (r *reqV2) Len() int {
	return sizeofReqV2
}

func (r *reqV2) Serialize() []byte {
	b := make([]byte, sizeofReqV2)
	b[0] = r.family
	b[1] = r.protocol
	b[2] = r.ext
	binary.NativeEndian.PutUint32(b[4:8], r.states)
	binary.BigEndian.PutUint16(b[8:10], r.id.sport)
	binary.BigEndian.PutUint16(b[10:12], r.id.dport)
	if r.id.src.IsValid() {
		copy(b[12:28], r.id.src.AsSlice())
	}
	if r.id.dst.IsValid() {
		copy(b[28:44], r.id.dst.AsSlice())
	}
	binary.NativeEndian.PutUint32(b[44:48], r.id.ifidx)
	binary.NativeEndian.PutUint32(b[48:52], r.id.cookie[0])
	binary.NativeEndian.PutUint32(b[52:56], r.id.cookie[1])
	return b
}

// diagSock is a socket reported by a dump. It pins nothing in the kernel, so
// Release only records that the reference was given back.
type diagSock struct {
	state    uint8
	id       sockID
	inode    uint32
	mark     uint32
	hasMark  bool
	released bool
}

func (s *diagSock) Mark() uint32 {
	return s.mark
}

func (s *diagSock) Release() {
	s.released = true
}

func parseDiagMsg(family uint8, b []byte) (*diagSock, error) {
	if len(b) < sizeofDiagMsg {
		return nil, fmt.Errorf("inet_diag_msg too short: %d bytes", len(b))
	}

	s := &diagSock{state: b[1]}
	s.id.sport = binary.BigEndian.Uint16(b[4:6])
	s.id.dport = binary.BigEndian.Uint16(b[6:8])
	if family == unix.AF_INET {
		s.id.src = netip.AddrFrom4([4]byte(b[8:12]))
		s.id.dst = netip.AddrFrom4([4]byte(b[24:28]))
	} else {
		s.id.src = netip.AddrFrom16([16]byte(b[8:24]))
		s.id.dst = netip.AddrFrom16([16]byte(b[24:40]))
	}
	s.id.ifidx = binary.NativeEndian.Uint32(b[40:44])
	s.inode = binary.NativeEndian.Uint32(b[68:72])

	attrs, err := nl.ParseRouteAttr(b[sizeofDiagMsg:])
	if err != nil {
		return nil, fmt.Errorf("parse inet_diag attributes: %v", err)
	}
	for _, attr := range attrs {
		if attr.Attr.Type == inetDiagMark && len(attr.Value) >= 4 {
			s.mark = binary.NativeEndian.Uint32(attr.Value[:4])
			s.hasMark = true
		}
	}
	return s, nil
}

type dumpFunc func(netnsPath string, req *reqV2) ([][]byte, error)

// Lookuper finds the tcp socket a mesh proxy keeps on the mark port.
type Lookuper struct {
	dump dumpFunc
}

var _ mesh.SockLookuper = (*Lookuper)(nil)

func NewLookuper() *Lookuper {
	return &Lookuper{dump: dumpInNetns}
}

// LookupTCP resolves tuple the way bpf_sk_lookup_tcp does for a listener:
// a socket whose local port is tuple.Dport and, unless tuple.Daddr is zero,
// whose local address is tuple.Daddr. Only CurrentNetns is supported.
func (l *Lookuper) LookupTCP(ctx mesh.EventContext, tuple *mesh.SockTupleV4, tupleSize uint32, netns uint32, flags uint64) (mesh.Sock, error) {
	if ctx == nil || tuple == nil {
		return nil, fmt.Errorf("%w: missing context or tuple", mesh.ErrLookupPrecondition)
	}
	if tupleSize != mesh.SizeofSockTupleV4 {
		return nil, fmt.Errorf("%w: tuple size %d", mesh.ErrLookupPrecondition, tupleSize)
	}
	if netns != mesh.CurrentNetns {
		return nil, fmt.Errorf("%w: netns id %d unsupported", mesh.ErrLookupPrecondition, netns)
	}

	req := &reqV2{
		family:   unix.AF_INET,
		protocol: unix.IPPROTO_TCP,
		states:   1<<tcpListen | 1<<tcpEstablished,
		id: sockID{
			cookie: [2]uint32{inetDiagNoCookie, inetDiagNoCookie},
		},
	}
	msgs, err := l.dump(ctx.NetnsPath(), req)
	if err != nil {
		return nil, fmt.Errorf("sock diag dump in %q: %w", ctx.NetnsPath(), err)
	}

	port := nets.Ntohs(tuple.Dport)
	var daddr [4]byte
	binary.NativeEndian.PutUint32(daddr[:], tuple.Daddr)
	for _, m := range msgs {
		s, err := parseDiagMsg(req.family, m)
		if err != nil {
			log.Debugf("skip sock diag message: %v", err)
			continue
		}
		if s.state != tcpListen || s.id.sport != port {
			continue
		}
		if tuple.Daddr != 0 && s.id.src != netip.AddrFrom4(daddr) && !s.id.src.IsUnspecified() {
			continue
		}
		if !s.hasMark {
			log.Debugf("socket on port %d has no mark attribute, CAP_NET_ADMIN missing?", port)
		}
		return s, nil
	}
	return nil, nil
}

func dumpInNetns(netnsPath string, req *reqV2) ([][]byte, error) {
	var res [][]byte
	run := func() error {
		r := nl.NewNetlinkRequest(sockDiagByFamily, unix.NLM_F_DUMP)
		r.AddData(req)
		var err error
		res, err = r.Execute(unix.NETLINK_INET_DIAG, sockDiagByFamily)
		return err
	}

	if netnsPath == "" {
		return res, run()
	}
	err := ns.WithNetNSPath(netnsPath, func(ns.NetNS) error {
		return run()
	})
	return res, err
}
