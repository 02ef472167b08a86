package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelgate.dev/internal/observerproto"
	"voxelgate.dev/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	validator *observerproto.Validator
	upgrader  websocket.Upgrader

	// AllowRemote disables the loopback-only guard.
	AllowRemote bool
}

func NewServer(w *world.World, logger *log.Logger) (*Server, error) {
	v, err := observerproto.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		blocks := s.world.Blocks()
		palette := make([]observerproto.BlockInfo, 0, len(blocks.Defs))
		for _, d := range blocks.Defs {
			palette = append(palette, observerproto.BlockInfo{
				ID:         d.ID,
				Name:       d.Name,
				Color:      d.Color,
				SeeThrough: blocks.SeeThrough(d.ID),
			})
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            s.world.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz:     cfg.TickRateHz,
				ChunkSize:      cfg.ChunkSize,
				Height:         cfg.Height,
				RenderDistance: cfg.RenderDistance,
				Hysteresis:     cfg.Hysteresis,
				SeaLevel:       cfg.SeaLevel,
				Seed:           cfg.Seed,
			},
			BlockPalette:  palette,
			PaletteDigest: blocks.Digest,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		typ, err := s.validator.Check(msg)
		if err != nil || typ != observerproto.TypeSubscribe {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
			return
		}
		normalizeSubscribe(&sub)

		sid := uuid.NewString()
		tickOut := make(chan []byte, 8)
		dataOut := make(chan []byte, 4096)
		ctrlOut := make(chan []byte, 32)

		joinReq := world.ObserverJoinRequest{
			SessionID:        sid,
			TickOut:          tickOut,
			DataOut:          dataOut,
			Compress:         sub.Compress,
			MaxMeshesPerTick: sub.MaxMeshesPerTick,
		}
		select {
		case s.world.ObserverJoin() <- joinReq:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()

		welcome, _ := json.Marshal(observerproto.WelcomeMsg{
			Type:            observerproto.TypeWelcome,
			ProtocolVersion: observerproto.Version,
			SessionID:       sid,
			Tick:            s.world.CurrentTick(),
		})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. It is the only writer after WELCOME.
		writeErr := make(chan error, 1)
		go func() {
			write := func(b []byte) error {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				return conn.WriteMessage(websocket.TextMessage, b)
			}
			for {
				var (
					b  []byte
					ok bool
				)
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b = <-ctrlOut:
					ok = true
				case b, ok = <-dataOut:
				case b, ok = <-tickOut:
				}
				if !ok {
					writeErr <- nil
					return
				}
				if err := write(b); err != nil {
					writeErr <- err
					return
				}
			}
		}()

		// Reader loop: SUBSCRIBE updates, POSE and SET_BLOCK.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleClientMessage(sid, msg, ctrlOut)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handleClientMessage(sid string, msg []byte, ctrlOut chan []byte) {
	typ, err := s.validator.Check(msg)
	if err != nil {
		sendError(ctrlOut, observerproto.ErrBadRequest, err.Error())
		return
	}
	var env struct {
		ProtocolVersion string `json:"protocol_version"`
	}
	_ = json.Unmarshal(msg, &env)
	if env.ProtocolVersion != observerproto.Version {
		sendError(ctrlOut, observerproto.ErrProtoBadRequest, "unsupported protocol_version")
		return
	}

	switch typ {
	case observerproto.TypeSubscribe:
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			sendError(ctrlOut, observerproto.ErrBadRequest, err.Error())
			return
		}
		normalizeSubscribe(&sub)
		req := world.ObserverSubscribeRequest{
			SessionID:        sid,
			Compress:         sub.Compress,
			MaxMeshesPerTick: sub.MaxMeshesPerTick,
		}
		select {
		case s.world.ObserverSubscribe() <- req:
		default:
			// Drop updates under load; the client may resend.
		}
	case observerproto.TypePose:
		var pose observerproto.PoseMsg
		if err := json.Unmarshal(msg, &pose); err != nil {
			sendError(ctrlOut, observerproto.ErrBadRequest, err.Error())
			return
		}
		select {
		case s.world.Pose() <- mgl64.Vec3(pose.Pos):
		default:
			// A newer pose will follow.
		}
	case observerproto.TypeSetBlock:
		var sb observerproto.SetBlockMsg
		if err := json.Unmarshal(msg, &sb); err != nil {
			sendError(ctrlOut, observerproto.ErrBadRequest, err.Error())
			return
		}
		req := world.EditRequest{
			SessionID: sid,
			RequestID: sb.RequestID,
			Pos:       sb.Pos,
			Block:     sb.Block,
		}
		select {
		case s.world.Edits() <- req:
		default:
			sendError(ctrlOut, observerproto.ErrWorldBusy, "edit queue full")
		}
	}
}

func sendError(out chan []byte, code, message string) {
	b, err := json.Marshal(observerproto.ErrorMsg{
		Type:            observerproto.TypeError,
		ProtocolVersion: observerproto.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.MaxMeshesPerTick <= 0 {
		sub.MaxMeshesPerTick = 64
	}
	if sub.MaxMeshesPerTick > 1024 {
		sub.MaxMeshesPerTick = 1024
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
