package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"astute/internal/domain"
	"astute/internal/service"
)

type stubAnswerer struct {
	answer  *domain.Answer
	answers []*domain.Answer
	err     error

	question string
	docs     []string
	optCount int
}

func (s *stubAnswerer) AnswerQuestion(ctx context.Context, question string, docs []string, opts ...service.AnswerOption) (*domain.Answer, error) {
	s.question = question
	s.docs = docs
	s.optCount = len(opts)
	return s.answer, s.err
}

func (s *stubAnswerer) AnswerBatch(ctx context.Context, queries []service.Query) ([]*domain.Answer, error) {
	return s.answers, s.err
}

func (s *stubAnswerer) AnswerDirect(ctx context.Context, question string) (*domain.Answer, error) {
	s.question = question
	return s.answer, s.err
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAnswerEndpoint(t *testing.T) {
	stub := &stubAnswerer{answer: &domain.Answer{
		Text:       "Paris",
		Confidence: 0.9,
		Citations:  []domain.Citation{{Cluster: 0, Consensus: "Paris is the capital", Sources: []string{"external_0"}}},
	}}
	h := NewAnswerHandler(stub)

	rec := postJSON(t, h.Answer, `{"question":"What is the capital of France?","retrieved_docs":["Paris is the capital."]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Question   string            `json:"question"`
		Text       string            `json:"text"`
		Confidence float32           `json:"confidence"`
		Citations  []domain.Citation `json:"citations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Question != "What is the capital of France?" {
		t.Errorf("question echo = %q", resp.Question)
	}
	if resp.Text != "Paris" || resp.Confidence != 0.9 || len(resp.Citations) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(stub.docs) != 1 {
		t.Errorf("docs forwarded = %v", stub.docs)
	}
	if stub.optCount != 0 {
		t.Errorf("unexpected per-call options: %d", stub.optCount)
	}
}

func TestAnswerEndpointForwardsMaxPassages(t *testing.T) {
	stub := &stubAnswerer{answer: &domain.Answer{Text: "ok"}}
	h := NewAnswerHandler(stub)

	rec := postJSON(t, h.Answer, `{"question":"q","max_generated_passages":0}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stub.optCount != 1 {
		t.Errorf("option count = %d, want the max_generated_passages override", stub.optCount)
	}
}

func TestAnswerEndpointInvalidBody(t *testing.T) {
	h := NewAnswerHandler(&stubAnswerer{})

	rec := postJSON(t, h.Answer, `{"question":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnswerEndpointEmptyQuestion(t *testing.T) {
	h := NewAnswerHandler(&stubAnswerer{err: service.ErrQuestionEmpty})

	rec := postJSON(t, h.Answer, `{"question":""}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnswerEndpointUpstreamFailure(t *testing.T) {
	stageErr := &domain.GenerationError{Err: &domain.TransportError{Provider: "openai", Status: 500, Err: errors.New("boom")}}
	h := NewAnswerHandler(&stubAnswerer{err: stageErr})

	rec := postJSON(t, h.Answer, `{"question":"q"}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestAnswerEndpointUnknownFailure(t *testing.T) {
	h := NewAnswerHandler(&stubAnswerer{err: errors.New("surprise")})

	rec := postJSON(t, h.Answer, `{"question":"q"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBatchEndpoint(t *testing.T) {
	stub := &stubAnswerer{answers: []*domain.Answer{{Text: "a"}, {Text: "b"}}}
	h := NewAnswerHandler(stub)

	rec := postJSON(t, h.Batch, `{"queries":[{"question":"one"},{"question":"two"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Answers []*domain.Answer `json:"answers"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Answers) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestBatchEndpointRequiresQueries(t *testing.T) {
	h := NewAnswerHandler(&stubAnswerer{})

	rec := postJSON(t, h.Batch, `{"queries":[]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDirectEndpoint(t *testing.T) {
	stub := &stubAnswerer{answer: &domain.Answer{Text: "Paris.", Notes: []string{"baseline answer produced without knowledge consolidation"}}}
	h := NewAnswerHandler(stub)

	rec := postJSON(t, h.Direct, `{"question":"What is the capital of France?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stub.question != "What is the capital of France?" {
		t.Errorf("question forwarded = %q", stub.question)
	}
}
