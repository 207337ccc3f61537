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

// Package nets : address helpers shared by the bpf maps and the resolver
package nets

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Address is the 16 byte, network ordered address layout used by the maps.
// IPv4 addresses occupy the first 4 bytes and leave the rest zero.
type Address [16]byte

// ParseAddress parses an IPv4 or IPv6 literal into the map layout.
func ParseAddress(s string) (Address, error) {
	var out Address
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return out, fmt.Errorf("invalid address %q: %v", s, err)
	}
	CopyIpByteFromSlice((*[16]byte)(&out), addr.Unmap().AsSlice())
	return out, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) isV4() bool {
	for _, b := range a[4:] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Addr converts back to netip; the zero Address is 0.0.0.0.
func (a Address) Addr() netip.Addr {
	if a.isV4() {
		return netip.AddrFrom4([4]byte(a[:4]))
	}
	return netip.AddrFrom16(a)
}

func (a Address) String() string {
	return a.Addr().String()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// CopyIpByteFromSlice copies a 4 or 16 byte ip into dst; other lengths are ignored.
func CopyIpByteFromSlice(dst *[16]byte, src []byte) {
	n := len(src)
	if n != 4 && n != 16 {
		return
	}

	for i := 0; i < n; i++ {
		(*dst)[i] = src[i]
	}
}

// ConvertIpToUint32 converts ip to little-endian uint32 format
func ConvertIpToUint32(ip string) uint32 {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Unmap().Is4() {
		return 0
	}
	b := addr.Unmap().As4()
	return binary.LittleEndian.Uint32(b[:])
}

// Htons converts a host ordered port to network order, the way bpf_htons does
// on little endian hosts.
func Htons(port uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, port)
	return binary.NativeEndian.Uint16(b)
}

// Ntohs is the inverse of Htons.
func Ntohs(port uint16) uint16 {
	return Htons(port)
}
