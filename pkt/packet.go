// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pkt implements Packet (spec §4.2): an immutable-once-dispatched,
// reference-counted payload reference with timing, SAP, and flag metadata
// plus an attached property map.
package pkt

import (
	"sync/atomic"

	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/prop"
)

// Variant distinguishes how a Packet's bytes are backed (spec §4.2).
type Variant int

const (
	// VariantAllocated owns a byte buffer of known size.
	VariantAllocated Variant = iota
	// VariantShared borrows from producer-owned memory with an optional
	// destructor callback invoked when the last reference is dropped.
	VariantShared
	// VariantRef borrows a byte range of an input packet, keeping that
	// packet alive via refcount.
	VariantRef
	// VariantFrameInterface carries no bytes; it exposes plane/GL-texture
	// accessors and a "blocking" flag.
	VariantFrameInterface
	// VariantPropsOnly keeps only the property map of a prior packet,
	// used for reorder-delay scenarios in encoders/decoders (RefProps).
	VariantPropsOnly
)

// SAP is a Stream Access Point classification (glossary: "a decodable
// restart point").
type SAP int

const (
	SAPNone SAP = iota
	SAP1
	SAP2
	SAP3
	SAP4
	SAP4Prol
)

// ClockType classifies a packet's role in carrying clock references.
type ClockType int

const (
	ClockNone ClockType = iota
	ClockPCR
	ClockPCRDiscontinuity
)

// NoTimestamp is the sentinel "no timestamp" value for DTS/CTS, matching
// the source format's all-ones 64-bit sentinel.
const NoTimestamp uint64 = ^uint64(0)

// DependencyFlags packs the four 2-bit dependency fields from spec §4.2
// (is-leading, depends-on, depended-on, redundant), each in [0,3].
type DependencyFlags struct {
	IsLeading  uint8
	DependsOn  uint8
	DependedOn uint8
	Redundant  uint8
}

// FrameInterface is the capability set exposed by a VariantFrameInterface
// packet (spec §4.2): plane/GL-texture access without a byte buffer.
type FrameInterface interface {
	// GetPlane returns the bytes and row stride for the given plane
	// index, or ok=false if the index is out of range.
	GetPlane(index int) (data []byte, stride int, ok bool)
	// GetGLTexture returns the GL format/id/color-matrix for the given
	// plane index, or ok=false if unavailable.
	GetGLTexture(index int) (format uint32, id uint32, matrix [16]float32, ok bool)
	// Blocking reports whether the producer is stalled until this frame
	// is released.
	Blocking() bool
}

// Packet is the refcounted payload reference described in spec §4.2. The
// zero value is not usable; construct with New*.
type Packet struct {
	refs    atomic.Int32
	variant Variant

	data []byte // VariantAllocated/VariantShared own or borrow this slice
	destructor func()

	source *Packet // VariantRef: the packet this one borrows from
	offset int
	length int

	frame FrameInterface // VariantFrameInterface

	dts, cts   uint64
	duration   uint32
	byteOffset uint64
	sap        SAP
	interlaced int8
	corrupted  bool
	seek       bool
	crypt      bool
	carousel   uint16
	dep        DependencyFlags
	seqNum     uint32
	clock      ClockType
	startFrame bool
	endFrame   bool

	props     *prop.Map
	reservoir *prop.Reservoir

	dispatched bool
}

// SetReservoir attaches the property-map reservoir this packet's Props
// should be borrowed from (if not yet materialized) and returned to on
// final Unref. Called by pid.PID.SendPacket; a nil reservoir restores
// plain fresh-allocate-and-discard behavior (session.NoReservoir).
func (p *Packet) SetReservoir(r *prop.Reservoir) { p.reservoir = r }

// NewAllocated allocates a size-byte owned buffer packet and returns it
// along with the mutable slice to fill before Send.
func NewAllocated(size int) (*Packet, []byte) {
	p := newBase(VariantAllocated)
	p.data = make([]byte, size)
	return p, p.data
}

// NewShared wraps producer-owned bytes without copying. destructor (if
// non-nil) runs once the packet's refcount reaches zero.
func NewShared(data []byte, destructor func()) *Packet {
	p := newBase(VariantShared)
	p.data = data
	p.destructor = destructor
	return p
}

// NewRef borrows [offset, offset+size) of source, keeping source alive for
// the lifetime of the returned packet (source's refcount is incremented).
func NewRef(source *Packet, offset, size int) *Packet {
	source.Ref()
	p := newBase(VariantRef)
	p.source = source
	p.offset = offset
	p.length = size
	return p
}

// NewFrameInterface wraps a FrameInterface with no byte payload.
// destructor (if non-nil) runs once the packet's refcount reaches zero.
func NewFrameInterface(iface FrameInterface, destructor func()) *Packet {
	p := newBase(VariantFrameInterface)
	p.frame = iface
	p.destructor = destructor
	return p
}

func newBase(v Variant) *Packet {
	p := &Packet{variant: v}
	p.refs.Store(1)
	return p
}

// Variant reports how this packet's bytes are backed.
func (p *Packet) Variant() Variant { return p.variant }

// Ref increments the refcount and returns p, for symmetry with Unref.
func (p *Packet) Ref() *Packet {
	p.refs.Add(1)
	return p
}

// Unref decrements the refcount, releasing backing resources (destructor,
// or the source packet's own reference) when it reaches zero.
func (p *Packet) Unref() {
	if p.refs.Add(-1) != 0 {
		return
	}
	switch p.variant {
	case VariantShared, VariantFrameInterface:
		if p.destructor != nil {
			p.destructor()
		}
	case VariantRef:
		p.source.Unref()
	}
	if p.props != nil {
		if p.reservoir != nil {
			p.reservoir.Put(p.props)
		} else {
			p.props.Enumerate(func(k prop.Key, v prop.Value) bool {
				v.Release()
				return true
			})
		}
	}
}

// RefProps returns a new VariantPropsOnly packet carrying a copy of this
// packet's property map (see prop.Map.Clone: values are Ref'd, not
// duplicated), and none of its payload, for reorder-delay scenarios in
// encoders/decoders
// (spec §4.2) where a consumer needs the metadata long after the payload
// itself has been released.
func (p *Packet) RefProps() *Packet {
	np := newBase(VariantPropsOnly)
	if p.props != nil {
		np.props = p.props.Clone()
	}
	np.dts, np.cts = p.dts, p.cts
	np.seqNum = p.seqNum
	return np
}

// GetData returns the packet's bytes for Allocated/Shared/Ref variants, or
// nil for FrameInterface/PropsOnly variants.
func (p *Packet) GetData() []byte {
	switch p.variant {
	case VariantAllocated, VariantShared:
		return p.data
	case VariantRef:
		src := p.source.GetData()
		if p.offset+p.length > len(src) {
			return nil
		}
		return src[p.offset : p.offset+p.length]
	default:
		return nil
	}
}

// GetFrameInterface returns the packet's FrameInterface, or (nil, false)
// if this packet does not carry one.
func (p *Packet) GetFrameInterface() (FrameInterface, bool) {
	if p.variant != VariantFrameInterface {
		return nil, false
	}
	return p.frame, true
}

// Expand grows an allocated packet's buffer by extraBytes. Only valid
// before dispatch (Send) on a VariantAllocated packet.
func (p *Packet) Expand(extraBytes int) ([]byte, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	if p.variant != VariantAllocated {
		return nil, fserr.New(fserr.BadParam, "", "Expand only valid on allocated packets")
	}
	p.data = append(p.data, make([]byte, extraBytes)...)
	return p.data, nil
}

// Truncate shrinks an allocated packet's buffer to size. Only valid before
// dispatch (Send) on a VariantAllocated packet.
func (p *Packet) Truncate(size int) error {
	if err := p.checkMutable(); err != nil {
		return err
	}
	if p.variant != VariantAllocated {
		return fserr.New(fserr.BadParam, "", "Truncate only valid on allocated packets")
	}
	if size > len(p.data) {
		return fserr.New(fserr.BadParam, "", "Truncate size exceeds buffer")
	}
	p.data = p.data[:size]
	return nil
}

func (p *Packet) checkMutable() error {
	if p.dispatched {
		return fserr.New(fserr.BadParam, "", "packet already dispatched, cannot mutate")
	}
	return nil
}

// MarkDispatched freezes the packet against further mutation. Called by
// the pid package's SendPacket when the packet is enqueued.
func (p *Packet) MarkDispatched() { p.dispatched = true }

// Dispatched reports whether Send has been called on this packet.
func (p *Packet) Dispatched() bool { return p.dispatched }

// --- timing / flags ---

func (p *Packet) SetDTS(v uint64)           { p.dts = v }
func (p *Packet) DTS() uint64               { return p.dts }
func (p *Packet) SetCTS(v uint64)           { p.cts = v }
func (p *Packet) CTS() uint64               { return p.cts }
func (p *Packet) SetDuration(v uint32)      { p.duration = v }
func (p *Packet) Duration() uint32          { return p.duration }
func (p *Packet) SetByteOffset(v uint64)    { p.byteOffset = v }
func (p *Packet) ByteOffset() uint64        { return p.byteOffset }
func (p *Packet) SetSAP(v SAP)              { p.sap = v }
func (p *Packet) SAPType() SAP              { return p.sap }
func (p *Packet) SetInterlaced(v int8)      { p.interlaced = v }
func (p *Packet) Interlaced() int8          { return p.interlaced }
func (p *Packet) SetCorrupted(v bool)       { p.corrupted = v }
func (p *Packet) Corrupted() bool           { return p.corrupted }
func (p *Packet) SetSeek(v bool)            { p.seek = v }
func (p *Packet) Seek() bool                { return p.seek }
func (p *Packet) SetCrypt(v bool)           { p.crypt = v }
func (p *Packet) Crypt() bool               { return p.crypt }
func (p *Packet) SetCarouselVersion(v uint16) { p.carousel = v }
func (p *Packet) CarouselVersion() uint16   { return p.carousel }
func (p *Packet) SetDependencyFlags(v DependencyFlags) { p.dep = v }
func (p *Packet) DependencyFlagsVal() DependencyFlags  { return p.dep }
func (p *Packet) SetSeqNum(v uint32)        { p.seqNum = v }
func (p *Packet) SeqNum() uint32            { return p.seqNum }
func (p *Packet) SetClockType(v ClockType)  { p.clock = v }
func (p *Packet) ClockTypeVal() ClockType   { return p.clock }
func (p *Packet) SetFraming(start, end bool) { p.startFrame, p.endFrame = start, end }
func (p *Packet) Framing() (start, end bool) { return p.startFrame, p.endFrame }

// Props returns the packet's attached property map, borrowing one from
// the reservoir (if SetReservoir was called) or allocating a fresh one on
// first access.
func (p *Packet) Props() *prop.Map {
	if p.props == nil {
		p.props = p.reservoir.Get()
	}
	return p.props
}

// HasProps reports whether Props has ever been materialized for this
// packet, without allocating one as a side effect.
func (p *Packet) HasProps() bool { return p.props != nil }

// MergeProperties copies src's properties into dst, src winning any
// conflicts. If filter is non-nil, only entries for which filter returns
// true are copied (spec §4.2).
func MergeProperties(src, dst *Packet, filter func(fourCC uint32, name string, v prop.Value) bool) {
	if src == nil || !src.HasProps() {
		return
	}
	src.props.Enumerate(func(k prop.Key, v prop.Value) bool {
		if filter != nil && !filter(k.FourCC, k.Name, v) {
			return true
		}
		dst.Props().Set(k, v.Ref())
		return true
	})
}
