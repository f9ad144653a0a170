package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/MrWong99/voxdrill/internal/observe"
	"github.com/MrWong99/voxdrill/internal/session"
	"github.com/MrWong99/voxdrill/pkg/practice"
)

// Live message types.
const (
	MsgStart  = "start"
	MsgAnswer = "answer"
	MsgNext   = "next"
	MsgFinish = "finish"

	MsgHello  = "hello"
	MsgState  = "state"
	MsgResult = "result"
	MsgError  = "error"
)

const (
	liveReadLimit    = 16 << 10
	liveWriteTimeout = 5 * time.Second
)

// LiveRequest is a client message on the live socket.
type LiveRequest struct {
	Type       string `json:"type"`
	QuestionID string `json:"questionId,omitempty"`
	Text       string `json:"text,omitempty"`
}

// LiveReply is a server message on the live socket. A "hello" is sent once
// on connect and carries the in-flight session, if any.
type LiveReply struct {
	Type         string                  `json:"type"`
	ConnectionID string                  `json:"connectionId,omitempty"`
	State        *practice.SessionState  `json:"state,omitempty"`
	Answer       *practice.MicroAnswer   `json:"answer,omitempty"`
	Result       *practice.SessionResult `json:"result,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// GET /v1/practice/live
//
// The socket drives the same flow as the REST endpoints for the
// authenticated learner, one request at a time.
func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		slog.Debug("live: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(liveReadLimit)

	ctx := r.Context()
	learner := LearnerID(ctx)
	connID := uuid.NewString()
	log := observe.Logger(ctx).With("learner", learner, "connection_id", connID)
	log.Info("live: connected")

	hello := LiveReply{Type: MsgHello, ConnectionID: connID}
	if state, ok := s.practice.Resume(ctx, learner); ok {
		hello.State = &state
	}
	if err := writeLive(ctx, conn, hello); err != nil {
		log.Debug("live: write hello failed", "error", err)
		return
	}

	for {
		var req LiveRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway,
				errors.Is(err, context.Canceled):
				log.Info("live: disconnected")
			default:
				log.Warn("live: read failed", "error", err)
			}
			return
		}
		reply := s.handleLive(ctx, learner, req)
		if err := writeLive(ctx, conn, reply); err != nil {
			log.Warn("live: write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleLive(ctx context.Context, learner string, req LiveRequest) LiveReply {
	switch req.Type {
	case MsgStart:
		if req.QuestionID == "" {
			return LiveReply{Type: MsgError, Error: "questionId is required"}
		}
		state, err := s.practice.Begin(ctx, learner, req.QuestionID)
		if err != nil {
			return liveError(err)
		}
		return LiveReply{Type: MsgState, State: &state}
	case MsgAnswer:
		step, err := s.practice.Answer(ctx, learner, req.Text)
		if err != nil {
			return liveError(err)
		}
		return stepReply(step)
	case MsgNext:
		step, err := s.practice.Advance(ctx, learner)
		if err != nil {
			return liveError(err)
		}
		return stepReply(step)
	case MsgFinish:
		result, err := s.practice.Finish(ctx, learner)
		if err != nil {
			return liveError(err)
		}
		return LiveReply{Type: MsgResult, Result: &result}
	default:
		return LiveReply{Type: MsgError, Error: "unknown message type " + `"` + req.Type + `"`}
	}
}

func stepReply(step session.Step) LiveReply {
	reply := LiveReply{Type: MsgState, State: &step.State, Answer: step.Answer}
	if step.Result != nil {
		reply.Type = MsgResult
		reply.Result = step.Result
	}
	return reply
}

func liveError(err error) LiveReply {
	if statusFor(err) == http.StatusInternalServerError {
		slog.Error("live: request failed", "error", err)
		return LiveReply{Type: MsgError, Error: "internal error"}
	}
	return LiveReply{Type: MsgError, Error: err.Error()}
}

func writeLive(ctx context.Context, conn *websocket.Conn, reply LiveReply) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, reply)
}
