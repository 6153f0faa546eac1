package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	apperrors "campus-assistant/errors"
	"campus-assistant/knowledge"
	"campus-assistant/metrics"
	"campus-assistant/search"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubLoader returns the sets it holds in sequence, repeating the last one.
type stubLoader struct {
	mu    sync.Mutex
	sets  []*knowledge.Set
	err   error
	calls int
}

func (s *stubLoader) Load() (*knowledge.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	i := min(s.calls-1, len(s.sets)-1)
	return s.sets[i], nil
}

func (s *stubLoader) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func campusSet() *knowledge.Set {
	faqs := []knowledge.Record{
		knowledge.NewFAQ("How do I reset my password?", "Use the self-service portal and click Forgot Password."),
		knowledge.NewFAQ("When is the library open?", "The library is open 8am to 10pm on weekdays."),
		knowledge.NewFAQ("How do I get a student ID card?", "Visit the Student Services desk with photo ID."),
		knowledge.NewFAQ("Where can I find my exam schedule?", "Exam schedules are posted on the registrar website."),
		knowledge.NewFAQ("How do I connect to campus Wi-Fi?", "Join the eduroam network with your university login."),
		knowledge.NewFAQ("Can I park on campus?", "Parking permits are sold by Campus Security."),
		knowledge.NewFAQ("Is there a gym?", "The sports centre is next to the stadium."),
	}
	departments := []knowledge.Record{
		knowledge.NewDepartment("IT Support", "it@uni.edu", "Handles Wi-Fi, login, and computer issues"),
		knowledge.NewDepartment("Library", "library@uni.edu", "Book loans, study rooms and opening hours"),
		knowledge.NewDepartment("Registrar", "registrar@uni.edu", "Transcripts, enrollment and graduation"),
	}
	procedures := []knowledge.Record{
		knowledge.NewProcedure("Password reset", "Reset a forgotten university password", "Go to portal", "Click reset", "Check email"),
		knowledge.NewProcedure("Request a transcript", "Order an official academic transcript",
			"Log in to the registrar portal", "Select transcript request", "Pay the fee"),
	}
	return &knowledge.Set{
		FAQs:        knowledge.Corpus{Name: "faqs", Kind: knowledge.KindFAQ, Records: faqs},
		Departments: knowledge.Corpus{Name: "departments", Kind: knowledge.KindDepartment, Records: departments},
		Procedures:  knowledge.Corpus{Name: "procedures", Kind: knowledge.KindProcedure, Records: procedures},
	}
}

func newTestRetriever(t *testing.T, loader CorpusLoader, cacheSize int) (*Retriever, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	r, err := NewRetriever(loader, search.DefaultOptions(), DefaultLimits(), cacheSize, m, zap.NewNop())
	require.NoError(t, err)
	return r, m
}

func TestNewRetrieverFailsWhenCorporaUnavailable(t *testing.T) {
	loader := &stubLoader{err: errors.New("faqs.json: no such file")}
	_, err := NewRetriever(loader, search.DefaultOptions(), DefaultLimits(), 0, nil, zap.NewNop())
	require.Error(t, err)
	assert.True(t, apperrors.IsIndexUnavailable(err))
}

func TestBuildSnapshotRejectsNilSet(t *testing.T) {
	_, err := BuildSnapshot(nil, search.DefaultOptions(), 1)
	assert.True(t, apperrors.IsIndexUnavailable(err))
}

func TestRetrieveWifiScenario(t *testing.T) {
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 0)

	res, err := r.Retrieve(context.Background(), "wifi not working")
	require.NoError(t, err)
	require.NotEmpty(t, res.Departments)
	assert.Equal(t, "IT Support", res.Departments[0].Record.Department.Department)
	assert.LessOrEqual(t, res.Departments[0].Score, 0.5)
}

func TestRetrieveRespectsLimitsAndCeiling(t *testing.T) {
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 0)
	limits := DefaultLimits()

	for _, q := range []string{"how do i", "campus", "password reset portal", "library"} {
		res, err := r.Retrieve(context.Background(), q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.FAQs), limits.FAQs, q)
		assert.LessOrEqual(t, len(res.Departments), limits.Departments, q)
		assert.LessOrEqual(t, len(res.Procedures), limits.Procedures, q)
		for _, group := range [][]search.MatchResult{res.FAQs, res.Departments, res.Procedures} {
			for i, m := range group {
				assert.LessOrEqual(t, m.Score, limits.MaxScore, q)
				if i > 0 {
					assert.LessOrEqual(t, group[i-1].Score, m.Score, q)
				}
			}
		}
	}
}

func TestBuildContextEmptyQueryScenario(t *testing.T) {
	set := campusSet()
	r, m := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{set}}, 0)

	res, err := r.Retrieve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, res.FAQs)
	assert.Empty(t, res.Departments)
	assert.Empty(t, res.Procedures)

	ctx, _, err := r.BuildContext(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ctx.UsedFallback)
	assert.Equal(t, Assemble(set.FAQs.Records[:5], nil, nil, nil).FAQs, ctx.FAQs)
	assert.Equal(t, "No relevant department contacts found.\n\n", ctx.Departments)
	assert.Equal(t, "No relevant procedure details found.\n\n", ctx.Procedures)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackFAQsTotal))
}

func TestBuildContextFallbackLaw(t *testing.T) {
	set := campusSet()
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{set}}, 0)

	ctx, res, err := r.BuildContext(context.Background(), "quantum chromodynamics")
	require.NoError(t, err)
	require.Empty(t, res.FAQs)

	for i, rec := range set.FAQs.Records {
		entry := fmt.Sprintf("Q: %s\n", rec.FAQ.Question)
		if i < 5 {
			assert.Contains(t, ctx.FAQs, entry)
		} else {
			assert.NotContains(t, ctx.FAQs, entry)
		}
	}
	// Corpus order.
	first := strings.Index(ctx.FAQs, set.FAQs.Records[0].FAQ.Question)
	fifth := strings.Index(ctx.FAQs, set.FAQs.Records[4].FAQ.Question)
	assert.Less(t, first, fifth)
}

func TestBuildContextIsDeterministic(t *testing.T) {
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 0)

	first, _, err := r.BuildContext(context.Background(), "reset my password")
	require.NoError(t, err)
	assert.Contains(t, first.Procedures, "  1. Go to portal")
	for i := 0; i < 20; i++ {
		again, _, err := r.BuildContext(context.Background(), "reset my password")
		require.NoError(t, err)
		assert.Equal(t, first.String(), again.String())
	}
}

func TestQueryCache(t *testing.T) {
	r, m := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 8)

	a, err := r.Retrieve(context.Background(), "Library hours")
	require.NoError(t, err)
	b, err := r.Retrieve(context.Background(), "  library HOURS ")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCacheMisses))
}

func TestReloadSwapsSnapshot(t *testing.T) {
	updated := campusSet()
	updated.Departments.Records = []knowledge.Record{
		knowledge.NewDepartment("Campus Network Desk", "net@uni.edu", "Wifi outages and eduroam access"),
	}
	loader := &stubLoader{sets: []*knowledge.Set{campusSet(), updated}}
	r, m := newTestRetriever(t, loader, 8)

	before := r.Snapshot()
	res, err := r.Retrieve(context.Background(), "wifi not working")
	require.NoError(t, err)
	require.NotEmpty(t, res.Departments)
	assert.Equal(t, "IT Support", res.Departments[0].Record.Department.Department)

	require.NoError(t, r.Reload())
	after := r.Snapshot()
	assert.Equal(t, before.Generation+1, after.Generation)
	assert.Equal(t, 3, before.Departments.Len(), "old snapshot must stay intact")

	res, err = r.Retrieve(context.Background(), "wifi not working")
	require.NoError(t, err)
	require.NotEmpty(t, res.Departments)
	assert.Equal(t, "Campus Network Desk", res.Departments[0].Record.Department.Department)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("success")))
}

func TestReloadFailureKeepsServing(t *testing.T) {
	loader := &stubLoader{sets: []*knowledge.Set{campusSet()}}
	r, m := newTestRetriever(t, loader, 0)
	before := r.Snapshot()

	loader.fail(errors.New("corrupt file"))
	err := r.Reload()
	require.Error(t, err)
	assert.True(t, apperrors.IsIndexUnavailable(err))
	assert.Same(t, before, r.Snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("error")))
}

func TestRetrieveHonoursCancelledContext(t *testing.T) {
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Retrieve(ctx, "library")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentRetrieveDuringReload(t *testing.T) {
	r, _ := newTestRetriever(t, &stubLoader{sets: []*knowledge.Set{campusSet()}}, 16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ctx, _, err := r.BuildContext(context.Background(), fmt.Sprintf("wifi %d", j%5))
				assert.NoError(t, err)
				assert.NotEmpty(t, ctx.String())
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, r.Reload())
	}
	wg.Wait()
}
