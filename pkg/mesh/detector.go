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
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	lru "github.com/hashicorp/golang-lru/v2"

	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/logger"
	"kmesh.net/cgmesh/pkg/nets"
	"kmesh.net/cgmesh/pkg/telemetry"
)

var log = logger.NewLoggerScope("mesh")

// missingMarkLogSize bounds how many marks without an address are
// remembered so each one is reported once.
const missingMarkLogSize = 256

type Detector struct {
	lookup   SockLookuper
	cache    *bpfcache.Cache
	markPort uint16
	metrics  *telemetry.Metrics

	missingMarks *lru.Cache[uint32, struct{}]
}

func NewDetector(lookup SockLookuper, cache *bpfcache.Cache, markPort uint16, metrics *telemetry.Metrics) *Detector {
	// size is a positive constant, New cannot fail
	missing, _ := lru.New[uint32, struct{}](missingMarkLogSize)
	return &Detector{
		lookup:       lookup,
		cache:        cache,
		markPort:     markPort,
		metrics:      metrics,
		missingMarks: missing,
	}
}

// Detect reports whether the event comes from a mesh participant and, when the
// participant's mark is known, its mesh address. A mark without an address is
// still a member with a zero address.
func (d *Detector) Detect(ctx EventContext) (bool, nets.Address, error) {
	var addr nets.Address

	tuple := SockTupleV4{
		Dport: nets.Htons(d.markPort),
		Daddr: 0,
	}
	if err := d.checkLookup(ctx, &tuple, SizeofSockTupleV4); err != nil {
		return false, addr, err
	}

	sk, err := d.lookup.LookupTCP(ctx, &tuple, SizeofSockTupleV4, CurrentNetns, 0)
	if err != nil {
		return false, addr, fmt.Errorf("lookup mark socket: %w", err)
	}
	if sk == nil {
		d.metrics.DetectNotInMesh()
		return false, addr, nil
	}

	mark := markOf(sk)

	var ip bpfcache.MarkIPValue
	if err := d.cache.MarkIPLookup(&bpfcache.MarkKey{Mark: mark}, &ip); err != nil {
		d.reportMissingMark(mark, err)
		d.metrics.DetectAddressMissing()
		return true, addr, nil
	}

	addr = nets.Address(ip.Ip)
	d.metrics.DetectInMesh()
	return true, addr, nil
}

// markOf reads the mark and drops the reference before anything else runs.
func markOf(sk Sock) uint32 {
	defer sk.Release()
	return sk.Mark()
}

func (d *Detector) checkLookup(ctx EventContext, tuple *SockTupleV4, size uint32) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil event context", ErrLookupPrecondition)
	}
	if tuple.Dport == 0 {
		return fmt.Errorf("%w: zero destination port", ErrLookupPrecondition)
	}
	if size != SizeofSockTupleV4 {
		return fmt.Errorf("%w: tuple size %d", ErrLookupPrecondition, size)
	}
	return nil
}

func (d *Detector) reportMissingMark(mark uint32, err error) {
	if ok, _ := d.missingMarks.ContainsOrAdd(mark, struct{}{}); ok {
		return
	}
	if errors.Is(err, ebpf.ErrKeyNotExist) {
		log.Debugf("get ip for mark 0x%x error", mark)
		return
	}
	log.Debugf("get ip for mark 0x%x error: %v", mark, err)
}
