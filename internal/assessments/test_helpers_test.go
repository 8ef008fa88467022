package assessments

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"scalpcare-backend/internal/customers"
	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/llm"
	"scalpcare-backend/internal/queue"
	local "scalpcare-backend/internal/shared/storage/object/local"
)

const testPhone = "0912345678"

type queueStub struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *queueStub) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	reqs  []llm.ReportRequest
	errs  []error
	reply llm.ReportResult
}

func (f *fakeGenerator) GenerateReport(ctx context.Context, req llm.ReportRequest) (llm.ReportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return llm.ReportResult{}, err
		}
	}
	return f.reply, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type testEnv struct {
	svc   *Service
	repo  *MemoryRepo
	queue *queueStub
	gen   *fakeGenerator
	store *local.Store
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	old := generatorRetryDelay
	generatorRetryDelay = 0
	t.Cleanup(func() { generatorRetryDelay = old })

	custSvc := customers.NewService(customers.NewMemoryRepo())
	if _, err := custSvc.Upsert(context.Background(), testPhone, customers.Profile{Name: "王小明", AgeRange: "30-39"}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	env := testEnv{
		repo:  NewMemoryRepo(),
		queue: &queueStub{},
		gen: &fakeGenerator{reply: llm.ReportResult{
			ReportText: "完整報告",
			Panel:      llm.SanitizePanel(map[string]any{"estimatedAge": 33.0}),
			Model:      "fake-model",
		}},
		store: local.New(t.TempDir()),
	}
	env.svc = &Service{
		Repo:      env.repo,
		Engine:    kb.NewEngine(nil),
		Generator: env.gen,
		Store:     env.store,
		Customers: custSvc,
		Queue:     env.queue,
	}
	return env
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func allFindingsInput() CreateInput {
	return CreateInput{
		AssessmentInput: kb.AssessmentInput{
			Observation: kb.ScalpObservation{Color: kb.ColorReddish, PoreStatus: kb.PoreClear},
			MachineMetrics: &kb.MachineMetrics{
				HairDensity:     120,
				HairDiameter:    60,
				SebumPercentage: 25,
				DandruffLevel:   1,
				FollicleHealth:  80,
			},
		},
	}
}

// flakyStore fails every Put whose key contains failOn.
type flakyStore struct {
	*local.Store
	failOn string
}

func (s flakyStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if strings.Contains(key, s.failOn) {
		return 0, errors.New("store unavailable")
	}
	return s.Store.Put(ctx, key, contentType, r)
}
