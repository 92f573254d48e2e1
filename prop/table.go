// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop

// TableFlag marks behavior of a built-in property table entry (spec §3).
type TableFlag uint32

const (
	// PacketOnly marks a property that only ever appears on packets, not
	// on a PID's property map (GF_PROP_FLAG_PCK in the source format).
	PacketOnly TableFlag = 1 << iota
	// OptionalInSerialization marks a property that a GSF-style
	// serializer may omit (GF_PROP_FLAG_GSFREM in the source format).
	OptionalInSerialization
)

// TableEntry is one row of the compile-time built-in property table:
// (4CC, name, description, value type, flags) (spec §3).
type TableEntry struct {
	FourCC      uint32
	Name        string
	Description string
	Type        Type
	Flags       TableFlag
}

func fcc(a, b, c, d byte) uint32 { return MakeFourCC(a, b, c, d) }

// BuiltinTable is the fixed, stable registry of property codes (spec
// §6.4). Implementations must preserve these 4CCs at the wire level if
// they serialize filter state; this table is the single source of truth
// other packages (pid, filter, graph) key off of for well-known
// properties such as STREAM_TYPE, CODECID, and FILE_EXT.
var BuiltinTable = []TableEntry{
	{fcc('P', 'I', 'D', 'I'), "ID", "PID identifier", TUInt, 0},
	{fcc('E', 'S', 'I', 'D'), "ESID", "MPEG-4 elementary stream ID", TUInt, 0},
	{fcc('P', 'S', 'I', 'D'), "ServiceID", "service/program identifier", TUInt, 0},
	{fcc('L', 'A', 'N', 'G'), "Language", "language code", TString, 0},
	{fcc('S', 'T', 'Y', 'P'), "StreamType", "stream type (audio/video/...)", TUInt, 0},
	{fcc('C', 'O', 'D', 'C'), "CodecID", "codec identifier", TUInt, 0},
	{fcc('T', 'I', 'M', 'S'), "Timescale", "timescale, in ticks per second", TUInt, 0},
	{fcc('W', 'I', 'D', 'T'), "Width", "visual width in pixels", TUInt, 0},
	{fcc('H', 'E', 'I', 'G'), "Height", "visual height in pixels", TUInt, 0},
	{fcc('P', 'F', 'M', 'T'), "PixelFormat", "raw pixel format", TPixelFormat, 0},
	{fcc('A', 'F', 'M', 'T'), "AudioFormat", "raw PCM sample format", TPCMFormat, 0},
	{fcc('A', 'U', 'S', 'R'), "SampleRate", "audio sample rate in Hz", TUInt, 0},
	{fcc('C', 'H', 'N', 'B'), "NumChannels", "number of audio channels", TUInt, 0},
	{fcc('F', 'E', 'X', 'T'), "FileExt", "file extension hint", TString, 0},
	{fcc('M', 'I', 'M', 'E'), "MIMEType", "MIME type hint", TString, 0},
	{fcc('D', 'U', 'R', 'A'), "Duration", "stream duration", TFraction64, 0},
	{fcc('B', 'I', 'T', 'R'), "Bitrate", "average bitrate, bits/sec", TUInt, 0},
	{fcc('P', 'B', 'K', 'M'), "PlaybackMode", "seek capability of the source", TUInt, 0},
	{fcc('C', 'K', 'I', 'N'), "CENCKeyInfo", "common encryption key info", TData, 0},
	{fcc('F', 'N', 'U', 'M'), "FileNumber", "file number in a sequence", TUInt, 0},
	{fcc('F', 'N', 'A', 'M'), "FileName", "source file name", TString, 0},
	{fcc('D', 'S', 'E', 'G'), "DashSegments", "number of DASH segments produced", TUInt, 0},
	{fcc('S', 'P', 'A', 'R'), "Sparse", "PID carries sparse (non-continuous) data", TBool, 0},
	{fcc('T', 'S', 'T', 'A'), "DTS", "packet decode timestamp", TLUInt, PacketOnly},
	{fcc('T', 'S', 'T', 'C'), "CTS", "packet composition timestamp", TLUInt, PacketOnly},
	{fcc('P', 'C', 'K', 'S'), "SAPType", "packet stream access point type", TUInt, PacketOnly},
}

var (
	byFourCC map[uint32]*TableEntry
	byName   map[string]*TableEntry
)

func init() {
	byFourCC = make(map[uint32]*TableEntry, len(BuiltinTable))
	byName = make(map[string]*TableEntry, len(BuiltinTable))
	for i := range BuiltinTable {
		e := &BuiltinTable[i]
		byFourCC[e.FourCC] = e
		byName[e.Name] = e
	}
}

// LookupFourCC returns the table entry for a built-in 4CC, if any.
func LookupFourCC(code uint32) (*TableEntry, bool) {
	e, ok := byFourCC[code]
	return e, ok
}

// LookupName returns the table entry for a built-in property name, if any.
func LookupName(name string) (*TableEntry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Well-known 4CCs referenced directly by the graph resolver (spec §4.5)
// and the PID state machine (spec §4.3).
var (
	PropStreamType = fcc('S', 'T', 'Y', 'P')
	PropCodecID    = fcc('C', 'O', 'D', 'C')
	PropTimescale  = fcc('T', 'I', 'M', 'S')
	PropWidth      = fcc('W', 'I', 'D', 'T')
	PropHeight     = fcc('H', 'E', 'I', 'G')
	PropPixfmt     = fcc('P', 'F', 'M', 'T')
	PropSampleRate = fcc('A', 'U', 'S', 'R')
	PropChannels   = fcc('C', 'H', 'N', 'B')
	PropFileExt    = fcc('F', 'E', 'X', 'T')
	PropMIME       = fcc('M', 'I', 'M', 'E')
	PropSparse     = fcc('S', 'P', 'A', 'R')
)

// StreamType enumerates the values of the STREAM_TYPE property (spec §3),
// as matched by capability bundles. The PID sparse rule reads PropSparse,
// not the stream type.
type StreamType uint32

const (
	StreamUnknown StreamType = iota
	StreamVisual
	StreamAudio
	StreamFile
	StreamText
	StreamScene
	StreamMetadata
	StreamEncrypted
)
