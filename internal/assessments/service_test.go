package assessments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/llm"
)

func TestCreateRunsEngineAndEnqueues(t *testing.T) {
	env := newTestEnv(t)
	in := allFindingsInput()
	in.Images = ImageSet{
		WhiteLight:     dataURL("image/jpeg", []byte("white")),
		PolarizedLight: dataURL("image/png", []byte("polar")),
	}
	in.ImagesAfter = ImageSet{WhiteLight: dataURL("image/jpeg", []byte("after"))}

	ctx := WithRequestID(context.Background(), "req-1")
	a, err := env.svc.Create(ctx, "0912-345-678", in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusQueued {
		t.Fatalf("status got %q want %q", a.Status, StatusQueued)
	}
	if a.CustomerPhone != testPhone {
		t.Fatalf("phone got %q", a.CustomerPhone)
	}
	if a.Input.Name != "王小明" || a.Input.AgeRange != "30-39" {
		t.Fatalf("identity not filled from customer: %+v", a.Input)
	}
	if got := len(a.Analysis.Diagnoses); got != 3 {
		t.Fatalf("expected 3 diagnoses, got %d", got)
	}
	if a.PromptBlock != env.svc.Engine.FormatForGeneration(a.Analysis) {
		t.Fatalf("prompt block does not match formatter output")
	}
	if len(a.Images) != 3 {
		t.Fatalf("expected 3 stored images, got %d", len(a.Images))
	}
	for _, img := range a.Images {
		if strings.Contains(img.Key, testPhone) {
			t.Fatalf("raw phone leaked into key %q", img.Key)
		}
		if !strings.HasPrefix(img.Key, "customers/") || !strings.Contains(img.Key, a.ID) {
			t.Fatalf("unexpected key layout %q", img.Key)
		}
	}
	if !strings.HasSuffix(a.Images[1].Key, "/polarizedLight_before.png") {
		t.Fatalf("unexpected polarized key %q", a.Images[1].Key)
	}

	if len(env.queue.messages) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(env.queue.messages))
	}
	msg := env.queue.messages[0]
	if msg.AssessmentID != a.ID || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	stored, err := env.repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusQueued || env.gen.calls() != 0 {
		t.Fatalf("report should not run before the job is processed")
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		in    CreateInput
		want  error
	}{
		{"bad phone", "x", CreateInput{}, ErrInvalidInput},
		{"bad color", testPhone, CreateInput{AssessmentInput: kb.AssessmentInput{Observation: kb.ScalpObservation{Color: "blue"}}}, ErrInvalidInput},
		{"bad pore", testPhone, CreateInput{AssessmentInput: kb.AssessmentInput{Observation: kb.ScalpObservation{PoreStatus: "?"}}}, ErrInvalidInput},
		{"bad after observation", testPhone, CreateInput{ObservationAfter: &kb.ScalpObservation{Color: "x"}}, ErrInvalidInput},
		{"bad image", testPhone, CreateInput{Images: ImageSet{WhiteLight: "not-a-data-url"}}, ErrInvalidInput},
		{"non image", testPhone, CreateInput{Images: ImageSet{Custom: dataURL("text/plain", []byte("hi"))}}, ErrInvalidInput},
		{"unknown customer", "0999999999", CreateInput{}, ErrCustomerNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.Create(context.Background(), tt.phone, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
			if len(env.queue.messages) != 0 {
				t.Fatalf("nothing should be enqueued on validation failure")
			}
		})
	}
}

func TestCreateDefaultsEmptyObservation(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.svc.Create(context.Background(), testPhone, CreateInput{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Input.Observation.Color != kb.ColorNormal || a.Input.Observation.PoreStatus != kb.PoreClear {
		t.Fatalf("observation not defaulted: %+v", a.Input.Observation)
	}
	if len(a.Analysis.Diagnoses) != 0 {
		t.Fatalf("healthy baseline should have no diagnoses, got %+v", a.Analysis.Diagnoses)
	}
}

func TestCreateEnqueueFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	env.queue.err = errors.New("queue down")

	_, err := env.svc.Create(context.Background(), testPhone, CreateInput{})
	if err == nil {
		t.Fatalf("expected enqueue error")
	}
	items, _ := env.repo.ListByCustomer(context.Background(), testPhone, 0, 0)
	if len(items) != 1 || items[0].Status != StatusFailed || items[0].ErrorCode != ErrorCodeAnalysisFailed {
		t.Fatalf("expected one failed assessment, got %+v", items)
	}
}

func TestCreateWithoutQueueProcessesInProcess(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Queue = nil

	a, err := env.svc.Create(context.Background(), testPhone, allFindingsInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := env.repo.GetByID(context.Background(), a.ID)
		if got.Status == StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("assessment not completed, status %q", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProcessAssessmentCompletes(t *testing.T) {
	env := newTestEnv(t)
	in := allFindingsInput()
	in.ConsultantNotes = "頭頂偏油"
	in.Images = ImageSet{
		WhiteLight:     dataURL("image/jpeg", []byte("white")),
		PolarizedLight: dataURL("image/jpeg", []byte("polar")),
		Custom:         dataURL("image/jpeg", []byte("custom")),
	}
	a, err := env.svc.Create(context.Background(), testPhone, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := env.svc.ProcessAssessment(context.Background(), a.ID); err != nil {
		t.Fatalf("ProcessAssessment: %v", err)
	}
	got, _ := env.repo.GetByID(context.Background(), a.ID)
	if got.Status != StatusCompleted || got.Report == nil {
		t.Fatalf("expected completed with report, got %+v", got)
	}
	if got.Report.Text != "完整報告" || got.Report.Panel.EstimatedAge != 33 || got.Report.Model != "fake-model" {
		t.Fatalf("unexpected report %+v", got.Report)
	}
	if got.CompletedAt == nil {
		t.Fatalf("completedAt not set")
	}

	req := env.gen.reqs[0]
	for _, want := range []string{"王小明", "30-39", "頭頂偏油", a.PromptBlock} {
		if !strings.Contains(req.Prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if len(req.Images) != 2 {
		t.Fatalf("expected white and polarized images only, got %d", len(req.Images))
	}
	if string(req.Images[0].Data) != "white" || req.Images[0].Label != imageLabels[SlotWhiteLight] {
		t.Fatalf("unexpected first image %+v", req.Images[0])
	}

	// redelivery of a finished job is a no-op
	if err := env.svc.ProcessAssessment(context.Background(), a.ID); err != nil {
		t.Fatalf("second ProcessAssessment: %v", err)
	}
	if env.gen.calls() != 1 {
		t.Fatalf("terminal assessment regenerated, calls=%d", env.gen.calls())
	}
}

func TestProcessAssessmentFailures(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantMsg   string
	}{
		{"transient then ok", []error{llm.Fail(llm.ReasonTimeout, nil)}, 2, ""},
		{"transient twice", []error{llm.Fail(llm.ReasonUpstream, nil), llm.Fail(llm.ReasonTimeout, nil)}, 2, "generation failed: timeout"},
		{"invalid response no retry", []error{llm.Fail(llm.ReasonInvalidResponse, nil)}, 1, "generation failed: invalid response"},
		{"quota no retry", []error{llm.Fail(llm.ReasonQuotaExceeded, nil)}, 1, "generation failed: quota exceeded"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gen.errs = tt.errs
			a, err := env.svc.Create(context.Background(), testPhone, CreateInput{})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := env.svc.ProcessAssessment(context.Background(), a.ID); err != nil {
				t.Fatalf("ProcessAssessment: %v", err)
			}
			if env.gen.calls() != tt.wantCalls {
				t.Fatalf("calls got %d want %d", env.gen.calls(), tt.wantCalls)
			}
			got, _ := env.repo.GetByID(context.Background(), a.ID)
			if tt.wantMsg == "" {
				if got.Status != StatusCompleted {
					t.Fatalf("expected completed, got %q", got.Status)
				}
				return
			}
			if got.Status != StatusFailed || got.ErrorCode != ErrorCodeAnalysisFailed {
				t.Fatalf("expected failed ANALYSIS_FAILED, got %q %q", got.Status, got.ErrorCode)
			}
			if got.ErrorMessage != tt.wantMsg {
				t.Fatalf("message got %q want %q", got.ErrorMessage, tt.wantMsg)
			}
		})
	}
}

func TestProcessAssessmentWithoutGenerator(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Generator = nil
	a, _ := env.svc.Create(context.Background(), testPhone, CreateInput{})
	if err := env.svc.ProcessAssessment(context.Background(), a.ID); err != nil {
		t.Fatalf("ProcessAssessment: %v", err)
	}
	got, _ := env.repo.GetByID(context.Background(), a.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "generation failed: not configured" {
		t.Fatalf("unexpected result %q %q", got.Status, got.ErrorMessage)
	}
}

func TestProcessAssessmentUnknownID(t *testing.T) {
	env := newTestEnv(t)
	if err := env.svc.ProcessAssessment(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByCustomerNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for i := 0; i < 3; i++ {
		a, err := env.svc.Create(context.Background(), testPhone, CreateInput{})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, a.ID)
		time.Sleep(2 * time.Millisecond)
	}

	got, err := env.svc.ListByCustomer(context.Background(), testPhone, 2, 0)
	if err != nil {
		t.Fatalf("ListByCustomer: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Fatalf("unexpected order %v", []string{got[0].ID, got[1].ID})
	}
	rest, _ := env.svc.ListByCustomer(context.Background(), testPhone, 2, 2)
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Fatalf("unexpected page 2 %+v", rest)
	}
	if _, err := env.svc.ListByCustomer(context.Background(), "bad", 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	analysis, block, err := env.svc.Preview(allFindingsInput().AssessmentInput)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(analysis.Diagnoses) != 3 || block == "" {
		t.Fatalf("unexpected preview %+v", analysis)
	}
	items, _ := env.repo.ListByCustomer(context.Background(), testPhone, 0, 0)
	if len(items) != 0 || len(env.queue.messages) != 0 {
		t.Fatalf("preview must not persist or enqueue")
	}
}

func TestCreateSkipsImagesTheStoreRejects(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Store = flakyStore{Store: env.store, failOn: "polarizedLight"}
	in := allFindingsInput()
	in.Images = ImageSet{
		WhiteLight:     dataURL("image/jpeg", []byte("white")),
		PolarizedLight: dataURL("image/png", []byte("polar")),
	}

	a, err := env.svc.Create(context.Background(), testPhone, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusQueued {
		t.Fatalf("status got %q want %q", a.Status, StatusQueued)
	}
	if len(a.Images) != 1 || a.Images[0].Slot != SlotWhiteLight {
		t.Fatalf("expected only the white light image, got %+v", a.Images)
	}
	stored, err := env.repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.Images) != 1 {
		t.Fatalf("stored images got %d want 1", len(stored.Images))
	}
}

func TestSanitizeErrorKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantLen int
	}{
		{name: "short message untouched", msg: "generation failed: timeout", wantLen: len("generation failed: timeout")},
		// 3-byte runes: byte 500 falls inside the 167th rune.
		{name: "cut backs off to rune start", msg: strings.Repeat("報", 200), wantLen: 498},
		{name: "ascii cut at limit", msg: strings.Repeat("a", 600), wantLen: 500},
		{name: "invalid bytes replaced", msg: "bad \xff\xfe tail", wantLen: len("bad � tail")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeError(errors.New(tt.msg))
			if !utf8.ValidString(got) {
				t.Fatalf("invalid UTF-8 in %q", got)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len got %d want %d", len(got), tt.wantLen)
			}
		})
	}
}
