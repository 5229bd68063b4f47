package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"protocol-navigator/internal/handlers/mocks"
	"protocol-navigator/internal/rag"

	"go.uber.org/mock/gomock"
)

func TestBenchmarkHandler_RunsBothModes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockQuestionEngine(ctrl)
	engine.EXPECT().
		Ask(gomock.Any(), "What is the max dose?", 0, rag.ModeRAG).
		Return(rag.AskResponse{Mode: rag.ModeRAG, Answer: "sparse answer", ContextChunks: 3})
	engine.EXPECT().
		Ask(gomock.Any(), "What is the max dose?", 0, rag.ModeLongContext).
		Return(rag.AskResponse{Mode: rag.ModeLongContext, Answer: "long answer", ContextChunks: 12})

	sink := &captureSink{}
	handler := NewBenchmarkHandler(engine, sink, openAuth(), "X-User-Role")

	payload, _ := json.Marshal(BenchmarkRequest{Question: "What is the max dose?"})
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp BenchmarkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Question != "What is the max dose?" {
		t.Errorf("unexpected question: %q", resp.Question)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results["rag"] == nil || resp.Results["rag"].Answer != "sparse answer" {
		t.Errorf("unexpected rag result: %+v", resp.Results["rag"])
	}
	if resp.Results["long_context"] == nil || resp.Results["long_context"].Answer != "long answer" {
		t.Errorf("unexpected long_context result: %+v", resp.Results["long_context"])
	}

	if len(sink.events) != 1 || sink.events[0].eventType != "benchmark_run" {
		t.Fatalf("expected one benchmark_run audit event, got %+v", sink.events)
	}
}

func TestBenchmarkHandler_EmptyQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockQuestionEngine(ctrl)
	handler := NewBenchmarkHandler(engine, &captureSink{}, openAuth(), "X-User-Role")

	req := httptest.NewRequest(http.MethodPost, "/api/benchmark", bytes.NewReader([]byte(`{"question":""}`)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
