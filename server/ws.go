package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
)

const wsIdlePingInterval = 30 * time.Second

// Message types on the /ws stream.
const (
	MsgBoard    = "board"
	MsgReset    = "reset"
	MsgAnalysis = "analysis"
	MsgError    = "error"
	MsgPing     = "ping"
)

// WSMessage is the envelope for every websocket frame in both directions.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// errBadMessage marks websocket frames that could not be decoded.
var errBadMessage = errors.New("bad message")

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS streams analyses for boards sent by a single client, such as a
// screen-reading controller. Each connection owns its engine so memo state
// carries over between the boards of one game.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.wsSessions.Add(1)

	logger := s.logger.With("remote", r.RemoteAddr)
	config := s.config
	config.Logger = logger
	engine, err := search.New(config)
	if err != nil {
		_ = conn.Close()
		logger.Error("websocket engine", "error", err)
		return
	}

	send := make(chan []byte, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, send); err != nil {
			logger.Debug("websocket writer stopped", "error", err)
		}
	}()
	defer func() {
		close(send)
		<-done
	}()

	logger.Info("websocket session opened")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("websocket session closed", "reason", err)
			return
		}
		reply := s.handleWSMessage(engine, data)
		if reply == nil {
			continue
		}
		select {
		case send <- reply:
		default:
			logger.Warn("websocket send buffer full, dropping reply")
		}
	}
}

func (s *Server) handleWSMessage(engine *search.Engine, data []byte) []byte {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return wsError(fmt.Errorf("%w: %v", errBadMessage, err))
	}

	switch msg.Type {
	case MsgBoard:
		var req MoveRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return wsError(fmt.Errorf("%w: %v", errBadMessage, err))
		}
		b, err := game.FromRows(req.Board)
		if err != nil {
			return wsError(err)
		}
		a := engine.Analyze(b)
		s.requests.Add(1)
		if !a.HasMove {
			s.noMove.Add(1)
		}
		return mustMarshal(WSMessage{Type: MsgAnalysis, Payload: mustMarshal(newMoveResponse(a))})
	case MsgReset:
		engine.Memo().Clear()
		return nil
	case MsgPing:
		return nil
	default:
		return wsError(fmt.Errorf("%w: unknown type %q", errBadMessage, msg.Type))
	}
}

func wsError(err error) []byte {
	return mustMarshal(WSMessage{Type: MsgError, Payload: mustMarshal(errorResponse{Error: err.Error()})})
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(WSMessage{Type: MsgPing})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
