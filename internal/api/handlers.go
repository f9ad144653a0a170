package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxBodyBytes       = 64 << 10
)

type questionsResponse struct {
	Questions []practice.Question `json:"questions"`
}

type historyResponse struct {
	Results []practice.SessionResult `json:"results"`
}

type beginRequest struct {
	QuestionID string `json:"questionId"`
}

type answerRequest struct {
	Text string `json:"text"`
}

// GET /v1/questions?channel=&q=&limit=
func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var questions []practice.Question
	if q := query.Get("q"); q != "" {
		limit := defaultSearchLimit
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxSearchLimit)
		}
		questions = s.catalog.Search(r.Context(), q, limit)
		if ch := query.Get("channel"); ch != "" {
			questions = filterChannel(questions, ch)
		}
	} else {
		questions = s.catalog.List(r.Context(), query.Get("channel"))
	}
	if questions == nil {
		questions = []practice.Question{}
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions})
}

// GET /v1/questions/{id}
func (s *Server) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.catalog.GetQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GET /v1/questions/{id}/session
func (s *Server) previewSession(w http.ResponseWriter, r *http.Request) {
	vs, err := s.practice.Preview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// POST /v1/practice
func (s *Server) begin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "questionId is required")
		return
	}
	state, err := s.practice.Begin(r.Context(), LearnerID(r.Context()), req.QuestionID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// GET /v1/practice/current
func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	state, ok := s.practice.Resume(r.Context(), LearnerID(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// POST /v1/practice/answer
func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	step, err := s.practice.Answer(r.Context(), LearnerID(r.Context()), req.Text)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// POST /v1/practice/next
func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	step, err := s.practice.Advance(r.Context(), LearnerID(r.Context()))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// POST /v1/practice/finish
func (s *Server) finish(w http.ResponseWriter, r *http.Request) {
	result, err := s.practice.Finish(r.Context(), LearnerID(r.Context()))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /v1/practice/history
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	results := s.practice.History(r.Context(), LearnerID(r.Context()))
	writeJSON(w, http.StatusOK, historyResponse{Results: results})
}

// decodeBody reads a JSON body into v, writing a 400 on failure. An empty
// body leaves v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func filterChannel(qs []practice.Question, channel string) []practice.Question {
	return lo.Filter(qs, func(q practice.Question, _ int) bool {
		return strings.EqualFold(q.Channel, channel)
	})
}
