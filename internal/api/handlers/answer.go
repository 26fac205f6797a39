package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"astute/internal/domain"
	"astute/internal/service"
)

// QuestionAnswerer is the slice of the answering pipeline the HTTP layer uses.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, question string, retrievedDocs []string, opts ...service.AnswerOption) (*domain.Answer, error)
	AnswerBatch(ctx context.Context, queries []service.Query) ([]*domain.Answer, error)
	AnswerDirect(ctx context.Context, question string) (*domain.Answer, error)
}

type AnswerHandler struct {
	svc QuestionAnswerer
}

func NewAnswerHandler(svc QuestionAnswerer) *AnswerHandler {
	return &AnswerHandler{svc: svc}
}

type answerRequest struct {
	Question             string   `json:"question"`
	RetrievedDocs        []string `json:"retrieved_docs,omitempty"`
	MaxGeneratedPassages *int     `json:"max_generated_passages,omitempty"`
}

type answerResponse struct {
	Question string `json:"question"`
	*domain.Answer
}

func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var opts []service.AnswerOption
	if req.MaxGeneratedPassages != nil {
		opts = append(opts, service.WithMaxGeneratedPassages(*req.MaxGeneratedPassages))
	}

	answer, err := h.svc.AnswerQuestion(r.Context(), req.Question, req.RetrievedDocs, opts...)
	if err != nil {
		handleAnswerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{Question: req.Question, Answer: answer})
}

type batchRequest struct {
	Queries []service.Query `json:"queries"`
}

type batchResponse struct {
	Answers []*domain.Answer `json:"answers"`
	Count   int              `json:"count"`
}

func (h *AnswerHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "queries is required")
		return
	}

	answers, err := h.svc.AnswerBatch(r.Context(), req.Queries)
	if err != nil {
		handleAnswerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Answers: answers, Count: len(answers)})
}

// Direct answers without retrieval or consolidation, as a baseline for
// comparing against the full pipeline.
func (h *AnswerHandler) Direct(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.AnswerDirect(r.Context(), req.Question)
	if err != nil {
		handleAnswerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{Question: req.Question, Answer: answer})
}

func handleAnswerError(w http.ResponseWriter, err error) {
	var genErr *domain.GenerationError
	var consErr *domain.ConsolidationError
	var finErr *domain.FinalizationError

	switch {
	case errors.Is(err, service.ErrQuestionEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &genErr), errors.As(err, &consErr), errors.As(err, &finErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to answer question")
	}
}
