package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "campus-assistant/errors"
	"campus-assistant/knowledge"
	"campus-assistant/rag"
	"campus-assistant/search"
	"campus-assistant/web/services"
	"campus-assistant/web/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnswerer struct {
	resp     types.ChatResponse
	err      error
	question string
	called   bool
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string) (types.ChatResponse, error) {
	f.called = true
	f.question = question
	return f.resp, f.err
}

func postChat(t *testing.T, a Answerer, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/api/chat", NewChatHandler(a, zap.NewNop()).Ask)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeAnswer(t *testing.T, w *httptest.ResponseRecorder) types.ChatResponse {
	t.Helper()
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAskSuccess(t *testing.T) {
	a := &fakeAnswerer{resp: types.ChatResponse{Answer: "Contact IT Support.", AnswerHTML: "<p>Contact IT Support.</p>\n"}}
	w := postChat(t, a, `{"question":"wifi not working"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "wifi not working", a.question)
	assert.Equal(t, a.resp, decodeAnswer(t, w))
}

func TestAskEmptyQuestionRunsPipeline(t *testing.T) {
	a := &fakeAnswerer{resp: types.ChatResponse{Answer: "Here are some common questions."}}
	w := postChat(t, a, `{}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.called)
	assert.Equal(t, "", a.question)
}

func TestAskBadRequests(t *testing.T) {
	for _, body := range []string{``, `not json`, `{"question": 42}`} {
		a := &fakeAnswerer{}
		w := postChat(t, a, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.False(t, a.called, body)
		assert.Contains(t, w.Body.String(), "error")
	}
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantAnswer bool
	}{
		{"generation", errors.Join(apperrors.ErrGeneration, errors.New("timeout")), http.StatusInternalServerError, true},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusBadRequest, false},
		{"index unavailable", apperrors.ErrIndexUnavailable, http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAnswerer{resp: types.ChatResponse{Answer: services.GenerationFailedAnswer}, err: tt.err}
			w := postChat(t, a, `{"question":"hi"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantAnswer {
				assert.Equal(t, services.GenerationFailedAnswer, decodeAnswer(t, w).Answer)
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

type fakeCorpora struct {
	snap      *rag.Snapshot
	next      *rag.Snapshot
	reloadErr error
}

func (f *fakeCorpora) Snapshot() *rag.Snapshot { return f.snap }

func (f *fakeCorpora) Reload() error {
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.snap = f.next
	return nil
}

func snapshot(t *testing.T, generation uint64, faqs int) *rag.Snapshot {
	t.Helper()
	set := &knowledge.Set{}
	for i := 0; i < faqs; i++ {
		set.FAQs.Records = append(set.FAQs.Records, knowledge.NewFAQ("q", "a"))
	}
	snap, err := rag.BuildSnapshot(set, search.DefaultOptions(), generation)
	require.NoError(t, err)
	snap.BuiltAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return snap
}

func corpusRouter(f *fakeCorpora) *gin.Engine {
	h := NewCorpusHandler(f, zap.NewNop())
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.POST("/api/reload", h.Reload)
	return r
}

func TestHealth(t *testing.T) {
	r := corpusRouter(&fakeCorpora{snap: snapshot(t, 4, 2)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status  string             `json:"status"`
		Corpora types.CorpusStatus `json:"corpora"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(4), body.Corpora.Generation)
	assert.Equal(t, 2, body.Corpora.FAQs)

	r = corpusRouter(&fakeCorpora{})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReload(t *testing.T) {
	f := &fakeCorpora{snap: snapshot(t, 1, 1), next: snapshot(t, 2, 3)}
	r := corpusRouter(f)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var st types.CorpusStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, uint64(2), st.Generation)
	assert.Equal(t, 3, st.FAQs)
}

func TestReloadFailure(t *testing.T) {
	old := snapshot(t, 1, 1)
	f := &fakeCorpora{snap: old, reloadErr: apperrors.ErrIndexUnavailable}
	r := corpusRouter(f)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reload", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "previous knowledge base")
	assert.Same(t, old, f.Snapshot())
}
