package observerproto

import "voxelgate.dev/internal/sim/world/io/meshcodec"

// Version is the observer stream protocol version.
const Version = "1.0"

// Message types.
const (
	TypeSubscribe  = "SUBSCRIBE"
	TypePose       = "POSE"
	TypeSetBlock   = "SET_BLOCK"
	TypeWelcome    = "WELCOME"
	TypeTick       = "TICK"
	TypeChunkMesh  = "CHUNK_MESH"
	TypeChunkEvict = "CHUNK_EVICT"
	TypeEditResult = "EDIT_RESULT"
	TypeError      = "ERROR"
)

// Client -> Server. First message on the connection; may be re-sent to
// change settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Compress        bool   `json:"compress,omitempty"`

	// Caps CHUNK_MESH messages per tick for this session.
	MaxMeshesPerTick int `json:"max_meshes_per_tick,omitempty"`
}

// Client -> Server. Moves the observer that drives chunk streaming.
type PoseMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float64 `json:"pos"`
}

// Client -> Server. Requests a single block edit.
type SetBlockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Pos             [3]int `json:"pos"`
	Block           uint8  `json:"block"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []BlockInfo `json:"block_palette"`
	PaletteDigest   string      `json:"palette_digest"`
}

type WorldParams struct {
	TickRateHz     int   `json:"tick_rate_hz"`
	ChunkSize      int   `json:"chunk_size"`
	Height         int   `json:"height"`
	RenderDistance int   `json:"render_distance"`
	Hysteresis     int   `json:"hysteresis"`
	SeaLevel       int   `json:"sea_level"`
	Seed           int64 `json:"seed"`
}

type BlockInfo struct {
	ID         uint8      `json:"id"`
	Name       string     `json:"name"`
	Color      [4]float32 `json:"color"`
	SeeThrough bool       `json:"see_through,omitempty"`
}

// Server -> Client. Sent once after a valid SUBSCRIBE.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Tick            uint64 `json:"tick"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Observer        [3]float64 `json:"observer"`
	ObserverChunk   [2]int     `json:"observer_chunk"`

	Loaded    int `json:"loaded"`
	Resident  int `json:"resident"`
	LoadedNow int `json:"loaded_now"`
	Evicted   int `json:"evicted"`
	Rebuilt   int `json:"rebuilt"`
	Pending   int `json:"pending"`
}

// Server -> Client. Full mesh for a chunk; replaces any earlier mesh.
type ChunkMeshMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
	Truncated       bool   `json:"truncated,omitempty"`
	meshcodec.Payload
}

// Server -> Client. Drop a chunk mesh from the client cache.
type ChunkEvictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
}

// Server -> Client. Outcome of a SET_BLOCK.
type EditResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Tick            uint64 `json:"tick"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Pos             [3]int `json:"pos"`
	Block           uint8  `json:"block"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
