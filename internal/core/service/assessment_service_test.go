package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testInstBase = port.NoopInstrumentation

// --- mocks ---

type mockLoader struct {
	table    *domain.Table
	err      error
	lastName string
	lastBody string
}

func (m *mockLoader) Load(_ context.Context, name string, r io.Reader) (*domain.Table, error) {
	m.lastName = name
	b, _ := io.ReadAll(r)
	m.lastBody = string(b)
	return m.table, m.err
}

type mockSource struct {
	called  bool
	lastSQL string
	table   *domain.Table
	err     error
}

func (m *mockSource) Load(_ context.Context, sql string) (*domain.Table, error) {
	m.called = true
	m.lastSQL = sql
	return m.table, m.err
}

type mockStore struct {
	saved    []any
	lastName string
	err      error
}

func (m *mockStore) Save(_ context.Context, name string, v any) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.lastName = name
	m.saved = append(m.saved, v)
	return "report_test.json", nil
}

type mockAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (m *mockAuditor) Record(_ context.Context, e port.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *mockAuditor) Close() error { return nil }

type countingInst struct {
	testInstBase
	count, errs int
	scores      []float64
}

func (c *countingInst) IncrementAssessmentCount(context.Context)  { c.count++ }
func (c *countingInst) IncrementAssessmentErrors(context.Context) { c.errs++ }
func (c *countingInst) RecordOverallScore(_ context.Context, s float64) {
	c.scores = append(c.scores, s)
}

type fixture struct {
	loader  *mockLoader
	source  *mockSource
	store   *mockStore
	auditor *mockAuditor
	inst    *countingInst
	svc     *AssessmentService
}

func newFixture(t *testing.T, cfg AssessmentConfig, withSource bool) *fixture {
	t.Helper()
	f := &fixture{
		loader:  &mockLoader{table: yearTable(t)},
		source:  &mockSource{table: yearTable(t)},
		store:   &mockStore{},
		auditor: &mockAuditor{},
		inst:    &countingInst{},
	}
	var src port.TableSource
	if withSource {
		src = f.source
	}
	engine := NewEngine(EngineConfig{}, fixedClock(2025), testLogger(), nil, nil)
	f.svc = NewAssessmentService(cfg, f.loader, src, domain.NewPgQueryValidator(), engine, f.store, f.auditor, testLogger(), nil, f.inst)
	return f
}

// --- tests ---

func TestAssessmentService_AssessFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{PreviewRows: 3}, false)
	ctx := WithToolName(context.Background(), "assess_file")

	a, err := f.svc.AssessFile(ctx, "cars.csv", strings.NewReader("payload"))
	require.NoError(t, err)

	assert.Equal(t, "cars.csv", f.loader.lastName)
	assert.Equal(t, "payload", f.loader.lastBody)
	assert.Equal(t, 4, a.TotalRows)
	assert.Equal(t, 2, a.TotalColumns)
	assert.NotEmpty(t, a.AssessmentID)
	assert.Equal(t, []string{"year", "name"}, a.PreviewColumns)
	require.Len(t, a.PreviewData, 3)
	assert.Equal(t, "", a.PreviewData[2]["name"])
	assert.Equal(t, "report_test.json", a.SavedReport)
	require.NotNil(t, a.TimelinessScore)
	assert.InDelta(t, 25.0, *a.TimelinessScore, 1e-9)

	assert.Equal(t, "cars.csv", f.store.lastName)
	require.Len(t, f.store.saved, 1)

	require.Len(t, f.auditor.entries, 1)
	e := f.auditor.entries[0]
	assert.Equal(t, "assess_file", e.Tool)
	assert.Equal(t, "cars.csv", e.Source)
	assert.Equal(t, 4, e.Rows)
	assert.NoError(t, e.Err)

	assert.Equal(t, 1, f.inst.count)
	assert.Len(t, f.inst.scores, 1)
}

func TestAssessmentService_AssessFile_EmptyTable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{PreviewRows: 20}, false)
	empty, err := domain.NewTable([]domain.Column{{Name: "a", Kind: domain.KindText}})
	require.NoError(t, err)
	f.loader.table = empty

	_, err = f.svc.AssessFile(context.Background(), "empty.csv", strings.NewReader(""))
	require.ErrorIs(t, err, domain.ErrEmptyTable)
	assert.Equal(t, "the uploaded file is empty or contains no data", err.Error())
	assert.Empty(t, f.store.saved)
	assert.Equal(t, 1, f.inst.errs)
	require.Len(t, f.auditor.entries, 1)
	assert.Error(t, f.auditor.entries[0].Err)
}

func TestAssessmentService_AssessFile_LoaderError(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{}, false)
	f.loader.err = domain.ErrUnsupportedFormat
	f.loader.table = nil

	_, err := f.svc.AssessFile(context.Background(), "x.doc", strings.NewReader(""))
	require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.True(t, domain.IsInputError(err))
}

func TestAssessmentService_AssessFile_StoreError(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{}, false)
	f.store.err = errors.New("disk full")

	_, err := f.svc.AssessFile(context.Background(), "a.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, domain.IsInputError(err))
}

func TestAssessmentService_AssessFile_Masks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{
		PreviewRows: 20,
		Masks:       map[string]domain.MaskType{"name": domain.MaskRedact},
	}, false)

	a, err := f.svc.AssessFile(context.Background(), "a.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "***", a.PreviewData[0]["name"])
	assert.Equal(t, "", a.PreviewData[2]["name"])
	assert.Equal(t, int64(2024), a.PreviewData[0]["year"])
}

func TestAssessmentService_AssessQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{PreviewRows: 20}, true)
	require.True(t, f.svc.HasSource())

	a, err := f.svc.AssessQuery(context.Background(), "SELECT year, name FROM cars")
	require.NoError(t, err)
	assert.True(t, f.source.called)
	assert.Equal(t, "SELECT year, name FROM cars", f.source.lastSQL)
	assert.Equal(t, 4, a.TotalRows)
	assert.Equal(t, "query", f.store.lastName)
}

func TestAssessmentService_AssessQuery_Rejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{"insert", "INSERT INTO cars VALUES (1)", domain.ErrNotAllowed},
		{"drop", "DROP TABLE cars", domain.ErrNotAllowed},
		{"empty", "", domain.ErrEmptyQuery},
		{"multi", "SELECT 1; SELECT 2", domain.ErrMultiStatement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, AssessmentConfig{}, true)
			_, err := f.svc.AssessQuery(context.Background(), tt.sql)
			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, f.source.called, "source should not be called for rejected queries")
		})
	}
}

func TestAssessmentService_NilLoggerIsDiscarded(t *testing.T) {
	t.Parallel()
	source := &mockSource{table: yearTable(t)}
	engine := NewEngine(EngineConfig{}, fixedClock(2025), nil, nil, nil)
	svc := NewAssessmentService(AssessmentConfig{}, &mockLoader{table: yearTable(t)}, source,
		domain.NewPgQueryValidator(), engine, &mockStore{}, &mockAuditor{}, nil, nil, nil)

	require.NotPanics(t, func() {
		_, err := svc.AssessQuery(context.Background(), "DROP TABLE cars")
		require.ErrorIs(t, err, domain.ErrNotAllowed)
	})
	assert.False(t, source.called)

	require.NotPanics(t, func() {
		_, err := svc.AssessFile(context.Background(), "cars.csv", strings.NewReader("x"))
		require.NoError(t, err)
	})
}

func TestAssessmentService_AssessQuery_NoSource(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{}, false)
	assert.False(t, f.svc.HasSource())
	_, err := f.svc.AssessQuery(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestAssessmentService_AssessQuery_AliasedMask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{
		PreviewRows: 20,
		Masks:       map[string]domain.MaskType{"owner": domain.MaskRedact},
	}, true)

	tbl, err := domain.NewTable([]domain.Column{
		{Name: "who", Kind: domain.KindText, Values: []domain.Value{domain.Text("alice")}},
	})
	require.NoError(t, err)
	f.source.table = tbl

	a, err := f.svc.AssessQuery(context.Background(), `SELECT owner AS who FROM cars`)
	require.NoError(t, err)
	assert.Equal(t, "***", a.PreviewData[0]["who"])
}

func TestAssessmentService_AssessQuery_SourceError(t *testing.T) {
	t.Parallel()
	f := newFixture(t, AssessmentConfig{}, true)
	f.source.err = errors.New("connection refused")

	_, err := f.svc.AssessQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, 1, f.inst.errs)
}
