// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package event implements the EventBus and the downstream/upstream event
// catalogue (spec §4.7).
package event

// Kind identifies an event type. Downstream events travel toward sources,
// upstream events travel toward sinks, USER is bidirectional (spec §4.7).
type Kind int

const (
	// Downstream events (toward source).
	Play Kind = iota
	Stop
	Pause
	Resume
	SetSpeed
	SourceSeek
	SourceSwitch
	QualitySwitch
	VisibilityHint
	BufferReq
	FileDeleteReverse
	EncodeHints
	NTPRef

	// Upstream events (toward sink).
	SegmentSize
	FragmentSize
	InfoUpdate
	ConnectFail
	CapsChange
	FileDeleteForward
	PlayHint

	// Bidirectional.
	User

	// AttachScene and ResetScene are main-thread-only scene-graph calls,
	// not propagated through the bus at all (spec's supplemented
	// scene-graph attachment interface): Bus.Dispatch drops them, and the
	// session has no other path that delivers them to a filter.
	AttachScene
	ResetScene
)

func (k Kind) String() string {
	switch k {
	case Play:
		return "PLAY"
	case Stop:
		return "STOP"
	case Pause:
		return "PAUSE"
	case Resume:
		return "RESUME"
	case SetSpeed:
		return "SET_SPEED"
	case SourceSeek:
		return "SOURCE_SEEK"
	case SourceSwitch:
		return "SOURCE_SWITCH"
	case QualitySwitch:
		return "QUALITY_SWITCH"
	case VisibilityHint:
		return "VISIBILITY_HINT"
	case BufferReq:
		return "BUFFER_REQ"
	case FileDeleteReverse:
		return "FILE_DELETE"
	case EncodeHints:
		return "ENCODE_HINTS"
	case NTPRef:
		return "NTP_REF"
	case SegmentSize:
		return "SEGMENT_SIZE"
	case FragmentSize:
		return "FRAGMENT_SIZE"
	case InfoUpdate:
		return "INFO_UPDATE"
	case ConnectFail:
		return "CONNECT_FAIL"
	case CapsChange:
		return "CAPS_CHANGE"
	case FileDeleteForward:
		return "FILE_DELETE"
	case PlayHint:
		return "PLAY_HINT"
	case User:
		return "USER"
	case AttachScene:
		return "ATTACH_SCENE"
	case ResetScene:
		return "RESET_SCENE"
	default:
		return "UNKNOWN"
	}
}

// Direction classifies where an event propagates.
type Direction int

const (
	Downstream Direction = iota // toward sources
	Upstream                    // toward sinks
	Bidirectional
)

func (k Kind) Direction() Direction {
	switch k {
	case Play, Stop, Pause, Resume, SetSpeed, SourceSeek, SourceSwitch,
		QualitySwitch, VisibilityHint, BufferReq, FileDeleteReverse,
		EncodeHints, NTPRef:
		return Downstream
	case SegmentSize, FragmentSize, InfoUpdate, ConnectFail, CapsChange,
		FileDeleteForward, PlayHint:
		return Upstream
	default:
		return Bidirectional
	}
}

// resetsBuffers reports whether delivering this event to a PID should
// first reset that PID's packet buffers (spec §4.7: PLAY and
// SOURCE_SEEK).
func (k Kind) resetsBuffers() bool { return k == Play || k == SourceSeek }

// Event is one bus message. It carries no PID: the filter it starts at is
// passed to Bus.Dispatch alongside it.
type Event struct {
	Kind  Kind
	Speed float64 // meaningful for SetSpeed
}
