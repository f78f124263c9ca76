package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/creative-composer/internal/compiler"
	"github.com/jonathan/creative-composer/internal/config"
	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/pipeline"
	"github.com/jonathan/creative-composer/internal/render"
	"github.com/jonathan/creative-composer/internal/server/ratelimit"
	"github.com/jonathan/creative-composer/internal/types"
)

// memStore mirrors the database's optimistic locking in memory.
type memStore struct {
	mu        sync.Mutex
	runs      map[uuid.UUID]*db.RunRecord
	revisions map[uuid.UUID][]db.SpecRevision
}

func newMemStore() *memStore {
	return &memStore{
		runs:      make(map[uuid.UUID]*db.RunRecord),
		revisions: make(map[uuid.UUID][]db.SpecRevision),
	}
}

func copyRecord(r *db.RunRecord) *db.RunRecord {
	out := *r
	if r.DraftSpec != nil {
		out.DraftSpec = r.DraftSpec.Clone()
	}
	if r.ApprovedSpec != nil {
		out.ApprovedSpec = r.ApprovedSpec.Clone()
	}
	if r.CreativeRef != nil {
		ref := *r.CreativeRef
		out.CreativeRef = &ref
	}
	if r.RunError != nil {
		e := *r.RunError
		out.RunError = &e
	}
	return &out
}

func (s *memStore) CreateRun(ctx context.Context, ownerID, imageRef string, attrs types.RunAttributes) (*db.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := &db.RunRecord{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		State:      types.RunStateCreated,
		Attributes: attrs,
		ImageRef:   imageRef,
		Version:    1,
	}
	s.runs[record.ID] = copyRecord(record)
	return record, nil
}

func (s *memStore) GetRun(ctx context.Context, id uuid.UUID) (*db.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.runs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyRecord(record), nil
}

func (s *memStore) ListRuns(ctx context.Context, ownerID string) ([]db.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.RunRecord
	for _, record := range s.runs {
		if record.OwnerID == ownerID {
			out = append(out, *copyRecord(record))
		}
	}
	return out, nil
}

func (s *memStore) UpdateRun(ctx context.Context, record *db.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[record.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Version != record.Version {
		return db.ErrStaleRun
	}
	record.Version++
	s.runs[record.ID] = copyRecord(record)
	return nil
}

func (s *memStore) AddSpecRevision(ctx context.Context, runID uuid.UUID, spec *types.CompositionSpec, editedBy string) (*db.SpecRevision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revision := db.SpecRevision{
		ID:       uuid.New(),
		RunID:    runID,
		Revision: len(s.revisions[runID]) + 1,
		Spec:     spec.Clone(),
		EditedBy: editedBy,
	}
	s.revisions[runID] = append(s.revisions[runID], revision)
	return &revision, nil
}

func (s *memStore) ListSpecRevisions(ctx context.Context, runID uuid.UUID) ([]db.SpecRevision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.SpecRevision, len(s.revisions[runID]))
	copy(out, s.revisions[runID])
	return out, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := "s3://creatives/" + key
	b.objects[handle] = append([]byte(nil), data...)
	return handle, nil
}

func (b *memBlobs) Get(ctx context.Context, handle string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[handle]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", handle)
	}
	return data, nil
}

type fakeCompiler struct {
	result *compiler.Result
	err    error
}

func (f *fakeCompiler) Compile(ctx context.Context, image *llm.ImageInput, attrs types.RunAttributes) (*compiler.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &compiler.Result{Spec: f.result.Spec.Clone(), Attempts: f.result.Attempts}, nil
}

type fakeGenerator struct {
	artifact *render.Artifact
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, image *llm.ImageInput, spec *types.CompositionSpec) (*render.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.artifact, nil
}

func draftSpec() *types.CompositionSpec {
	return &types.CompositionSpec{
		Canvas:     types.DefaultCanvas,
		Background: types.Background{Kind: types.BackgroundBlurredScene, SceneHint: "soft linen backdrop"},
		Product: types.ProductPlacement{
			HorizontalBias: 0.5,
			VerticalBias:   0.5,
			HeightFraction: 0.5,
		},
		TextElements: []types.TextElement{
			{
				Kind:      types.ElementPlain,
				Content:   "PURE GLOW",
				Font:      "Didot",
				Hierarchy: types.HierarchyPrimary,
				Placement: types.Placement{Anchor: types.AnchorTopCenter},
				Style:     types.TextStyle{SizeClass: "large", Weight: "bold"},
			},
		},
	}
}

type serverFixture struct {
	server  *Server
	handler http.Handler
	store   *memStore
	blobs   *memBlobs
	token   string
}

// newServerFixture builds a Server over in-memory stores with the same
// routing and middleware as production.
func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	store := newMemStore()
	blobs := newMemBlobs()
	orch := pipeline.NewOrchestrator(
		store, blobs,
		&fakeCompiler{result: &compiler.Result{Spec: draftSpec(), Attempts: 1}},
		&fakeGenerator{artifact: &render.Artifact{MIMEType: "image/png", Data: []byte{0x89, 0x50}, Attempts: 1}},
	)

	s := &Server{
		blobs:        blobs,
		orchestrator: orch,
		rateLimiter:  ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
		jwtService: NewJWTService(&config.JWTConfig{
			Secret:          "test-secret-at-least-32-characters",
			ExpirationHours: 1,
		}),
	}
	t.Cleanup(s.rateLimiter.Stop)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	authed := http.NewServeMux()
	authed.HandleFunc("POST /runs", s.handleCreateRun)
	authed.HandleFunc("GET /runs", s.handleListRuns)
	authed.HandleFunc("GET /runs/{id}", s.handleGetRun)
	authed.HandleFunc("POST /runs/{id}/approve", s.handleApproveRun)
	authed.HandleFunc("POST /runs/{id}/edit", s.handleEditRun)
	authed.HandleFunc("POST /runs/{id}/cancel", s.handleCancelRun)
	authed.HandleFunc("POST /runs/{id}/regenerate", s.handleRegenerateRun)
	authed.HandleFunc("GET /runs/{id}/creative", s.handleGetCreative)
	authed.HandleFunc("GET /runs/{id}/revisions", s.handleListRevisions)
	authed.HandleFunc("POST /assets", s.handleUploadAsset)
	mux.Handle("/", s.withAuth(authed))

	token, err := s.jwtService.GenerateToken("reviewer-1")
	require.NoError(t, err)

	return &serverFixture{
		server:  s,
		handler: s.withRateLimit(mux),
		store:   store,
		blobs:   blobs,
		token:   token,
	}
}

func (f *serverFixture) request(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.requestAs(t, f.token, method, target, body)
}

func (f *serverFixture) requestAs(t *testing.T, token, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *serverFixture) createRun(t *testing.T) uuid.UUID {
	t.Helper()
	w := f.request(t, http.MethodPost, "/runs", createRunRequest{
		ImageBase64: base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
		ImageFormat: "png",
		Attributes: types.RunAttributes{
			ProductDescription: "hydrating face serum",
			PrimaryFont:        "Didot",
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var record db.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	return record.ID
}

// waitForState polls until the background stage lands the run in the
// wanted state.
func (f *serverFixture) waitForState(t *testing.T, id uuid.UUID, want types.RunState) *db.RunRecord {
	t.Helper()
	var record *db.RunRecord
	require.Eventually(t, func() bool {
		var err error
		record, err = f.store.GetRun(context.Background(), id)
		return err == nil && record.State == want
	}, 2*time.Second, 5*time.Millisecond, "run never reached %s", want)
	return record
}

func TestHealthNeedsNoToken(t *testing.T) {
	f := newServerFixture(t)
	w := f.requestAs(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunEndpointsRequireToken(t *testing.T) {
	f := newServerFixture(t)

	w := f.requestAs(t, "", http.MethodGet, "/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.requestAs(t, "not-a-token", http.MethodGet, "/runs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRunCompilesInBackground(t *testing.T) {
	f := newServerFixture(t)

	id := f.createRun(t)
	record := f.waitForState(t, id, types.RunStateAwaitingReview)
	assert.NotNil(t, record.DraftSpec)
	assert.Equal(t, "reviewer-1", record.OwnerID)
}

func TestCreateRunRejectsBadBody(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/runs", map[string]string{"image_base64": "***"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, "/runs", createRunRequest{
		ImageBase64: base64.StdEncoding.EncodeToString([]byte{1}),
		Attributes:  types.RunAttributes{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing product description")
}

func TestApproveGeneratesInBackground(t *testing.T) {
	f := newServerFixture(t)

	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/approve", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	record := f.waitForState(t, id, types.RunStateCompleted)
	require.NotNil(t, record.CreativeRef)

	w = f.request(t, http.MethodGet, "/runs/"+id.String()+"/creative", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 0x50}, w.Body.Bytes())
}

func TestApproveBeforeDraftConflicts(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/approve", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	// Approving again while approved or beyond is a state conflict.
	f.waitForState(t, id, types.RunStateCompleted)
	w = f.request(t, http.MethodPost, "/runs/"+id.String()+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEditRunReplacesDraft(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	edited := draftSpec()
	edited.TextElements[0].Content = "NEW GLOW"

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/edit", editRunRequest{Spec: edited})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var record db.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "NEW GLOW", record.DraftSpec.TextElements[0].Content)

	w = f.request(t, http.MethodGet, "/runs/"+id.String()+"/revisions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var revisions []db.SpecRevision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revisions))
	require.Len(t, revisions, 1)
	assert.Equal(t, "PURE GLOW", revisions[0].Spec.TextElements[0].Content)
}

func TestEditRunRejectsInvalidSpec(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	edited := draftSpec()
	edited.Canvas.Width = 500

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/edit", editRunRequest{Spec: edited})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.request(t, http.MethodPost, "/runs/"+id.String()+"/edit", editRunRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "edit requires a full spec")
}

func TestCancelRun(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var record db.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, types.RunStateCancelled, record.State)

	w = f.request(t, http.MethodPost, "/runs/"+id.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "cancel is final")
}

func TestRegenerateOpensFreshRun(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	f.request(t, http.MethodPost, "/runs/"+id.String()+"/approve", nil)
	f.waitForState(t, id, types.RunStateCompleted)

	w := f.request(t, http.MethodPost, "/runs/"+id.String()+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var fresh db.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fresh))
	require.NotEqual(t, id, fresh.ID)

	f.waitForState(t, fresh.ID, types.RunStateAwaitingReview)
}

func TestOtherReviewerIsForbidden(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	intruder, err := f.server.jwtService.GenerateToken("intruder")
	require.NoError(t, err)

	w := f.requestAs(t, intruder, http.MethodGet, "/runs/"+id.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.requestAs(t, intruder, http.MethodPost, "/runs/"+id.String()+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The intruder's run list does not leak the other reviewer's runs.
	w = f.requestAs(t, intruder, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []db.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Empty(t, records)
}

func TestGetRunNotFound(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodGet, "/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.request(t, http.MethodGet, "/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreativeBeforeCompletionConflicts(t *testing.T) {
	f := newServerFixture(t)
	id := f.createRun(t)
	f.waitForState(t, id, types.RunStateAwaitingReview)

	w := f.request(t, http.MethodGet, "/runs/"+id.String()+"/creative", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUploadAsset(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/assets", uploadAssetRequest{
		DataBase64:  base64.StdEncoding.EncodeToString([]byte("logo-bytes")),
		ContentType: "image/png",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp["handle"], "assets/")

	data, err := f.blobs.Get(context.Background(), resp["handle"])
	require.NoError(t, err)
	assert.Equal(t, []byte("logo-bytes"), data)
}
