package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/textqueue/internal/domain"
	"github.com/kursadbilgin/textqueue/internal/guard"
	"github.com/kursadbilgin/textqueue/internal/observability"
	"github.com/kursadbilgin/textqueue/internal/parser"
	"github.com/kursadbilgin/textqueue/internal/phone"
	"github.com/kursadbilgin/textqueue/internal/queue"
	"github.com/kursadbilgin/textqueue/internal/report"
	"github.com/kursadbilgin/textqueue/internal/repository"
	"go.uber.org/zap"
)

const twoRecordExport = "Commodity Market Update,0412 345 678,a01,Lead\n" +
	"wheat up,,,\n" +
	"------,,,\n" +
	"Commodity Market Update,0498 765 432,c01,Contact\n" +
	"barley flat,,,\n" +
	"------,,,\n"

func TestImportServiceRunHappyPath(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	var stored []*domain.Message
	var storedImport *domain.Import
	repo := &fakeImportRepo{
		createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
			storedImport = imp
			stored = messages
			return nil
		},
	}

	var published []queue.QueuedMessage
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			if queueName != queue.SMSQueue {
				t.Fatalf("queue name = %s, want %s", queueName, queue.SMSQueue)
			}
			published = append(published, msg)
			return nil
		},
	}

	acquired := ""
	importGuard := &fakeGuard{
		acquireFn: func(ctx context.Context, checksum string) error {
			acquired = checksum
			return nil
		},
	}

	svc := newTestService(t, repo, importGuard, publisher)

	rep, err := svc.Run(context.Background(), path, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rep.Queued != 2 || len(rep.Errors) != 0 || rep.Unpublished != 0 {
		t.Fatalf("report = %+v, want 2 queued and no errors", rep)
	}
	if len(stored) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(stored))
	}
	if storedImport == nil || storedImport.TotalCount != 2 || storedImport.FileName != "export.csv" {
		t.Fatalf("import row = %+v", storedImport)
	}
	if acquired == "" || acquired != storedImport.Checksum {
		t.Fatalf("guard checksum = %q, import checksum = %q", acquired, storedImport.Checksum)
	}

	for i, m := range stored {
		if m.ID == "" {
			t.Fatalf("message %d has no id", i)
		}
		if m.ImportID == nil || *m.ImportID != storedImport.ID {
			t.Fatalf("message %d import id = %v, want %s", i, m.ImportID, storedImport.ID)
		}
		if m.QueuedAt.IsZero() {
			t.Fatalf("message %d queuedAt is zero", i)
		}
	}
	if stored[0].Recipient() != "+61412345678" || stored[1].Priority != domain.PriorityContact {
		t.Fatalf("unexpected batch order: %+v, %+v", stored[0], stored[1])
	}

	if len(published) != 2 {
		t.Fatalf("published = %d, want 2", len(published))
	}
	if published[1].MessageID != stored[1].ID {
		t.Fatalf("published id = %s, want %s", published[1].MessageID, stored[1].ID)
	}
}

func TestImportServiceRunEmptyBatchSkipsStoreAndQueue(t *testing.T) {
	t.Parallel()

	path := writeExport(t, "Commodity Market Update,0,a01,Lead\n------,,,\n")

	repo := &fakeImportRepo{
		createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
			t.Fatal("store must not be called for an empty batch")
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			t.Fatal("publisher must not be called for an empty batch")
			return nil
		},
	}
	importGuard := &fakeGuard{
		acquireFn: func(ctx context.Context, checksum string) error {
			t.Fatal("guard must not be called for an empty batch")
			return nil
		},
	}

	svc := newTestService(t, repo, importGuard, publisher)

	rep, err := svc.Run(context.Background(), path, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !rep.Empty() {
		t.Fatalf("report should be empty, got %+v", rep)
	}
}

func TestImportServiceRunDryRun(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	repo := &fakeImportRepo{
		createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
			t.Fatal("store must not be called on dry run")
			return nil
		},
	}

	svc := newTestService(t, repo, nil, nil)

	rep, err := svc.Run(context.Background(), path, RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !rep.DryRun || rep.Queued != 2 {
		t.Fatalf("report = %+v, want dry run with 2 queued", rep)
	}
}

func TestImportServiceRunDryRunWithoutStore(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)
	svc := newTestService(t, nil, nil, nil)

	if _, err := svc.Run(context.Background(), path, RunOptions{DryRun: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := svc.Run(context.Background(), path, RunOptions{}); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("Run() error = %v, want ErrStoreNotConfigured", err)
	}
}

func TestImportServiceRunGuardRefusesDuplicate(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	tests := []struct {
		name        string
		force       bool
		wantErr     error
		wantCreated bool
	}{
		{name: "refused", force: false, wantErr: guard.ErrAlreadyImported, wantCreated: false},
		{name: "forced", force: true, wantErr: nil, wantCreated: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			created := false
			repo := &fakeImportRepo{
				createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
					created = true
					return nil
				},
			}
			importGuard := &fakeGuard{
				acquireFn: func(ctx context.Context, checksum string) error {
					return guard.ErrAlreadyImported
				},
			}

			svc := newTestService(t, repo, importGuard, nil)

			_, err := svc.Run(context.Background(), path, RunOptions{Force: tt.force})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if created != tt.wantCreated {
				t.Fatalf("created = %v, want %v", created, tt.wantCreated)
			}
		})
	}
}

func TestImportServiceRunStoreFailureReleasesGuard(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)
	storeErr := errors.New("db down")

	repo := &fakeImportRepo{
		createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
			return storeErr
		},
	}
	released := false
	importGuard := &fakeGuard{
		releaseFn: func(ctx context.Context, checksum string) error {
			released = true
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			t.Fatal("publisher must not be called when storing fails")
			return nil
		},
	}

	svc := newTestService(t, repo, importGuard, publisher)

	_, err := svc.Run(context.Background(), path, RunOptions{})
	if !errors.Is(err, storeErr) {
		t.Fatalf("Run() error = %v, want %v", err, storeErr)
	}
	if !released {
		t.Fatal("expected guard claim to be released")
	}
}

func TestImportServiceRunPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	calls := 0
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			calls++
			if calls == 2 {
				return errors.New("channel closed")
			}
			return nil
		},
	}

	metrics := observability.NewMetrics()
	svc := newTestService(t, &fakeImportRepo{}, nil, publisher)
	svc.SetMetrics(metrics)

	rep, err := svc.Run(context.Background(), path, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("publish calls = %d, want 2", calls)
	}
	if rep.Unpublished != 1 || rep.Queued != 2 {
		t.Fatalf("report = %+v, want 1 unpublished of 2", rep)
	}

	metricsPath := filepath.Join(t.TempDir(), "textqueue.prom")
	if err := metrics.WriteTextfile(metricsPath); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	body, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(body), "textqueue_publish_failed_total 1") {
		t.Fatalf("metrics textfile missing publish failure:\n%s", body)
	}
	if !strings.Contains(string(body), `textqueue_records_total{outcome="queued"} 2`) {
		t.Fatalf("metrics textfile missing queued records:\n%s", body)
	}
}

func TestImportServiceRunStopsAnnouncingAfterFirstFailure(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	calls := 0
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			calls++
			return errors.New("broker unreachable")
		},
	}

	svc := newTestService(t, &fakeImportRepo{}, nil, publisher)

	rep, err := svc.Run(context.Background(), path, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("publish calls = %d, want 1", calls)
	}
	if rep.Unpublished != 2 {
		t.Fatalf("unpublished = %d, want 2", rep.Unpublished)
	}
}

func TestImportServiceRunPublishTimeoutBoundsBlockedBroker(t *testing.T) {
	t.Parallel()

	path := writeExport(t, twoRecordExport)

	calls := 0
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		},
	}

	svc := newTestService(t, &fakeImportRepo{}, nil, publisher)
	svc.SetPublishTimeout(20 * time.Millisecond)

	done := make(chan struct{})
	var (
		rep    report.Report
		runErr error
	)
	go func() {
		defer close(done)
		rep, runErr = svc.Run(context.Background(), path, RunOptions{})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the publish timeout")
	}

	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}
	if calls != 1 {
		t.Fatalf("publish calls = %d, want 1", calls)
	}
	if rep.Unpublished != 2 || rep.Queued != 2 {
		t.Fatalf("report = %+v, want 2 unpublished of 2", rep)
	}
}

func TestImportServiceRunKeepsErrorLog(t *testing.T) {
	t.Parallel()

	path := writeExport(t, "Commodity Market Update,0412 345 678,a01,Lead\n"+
		"Commodity Market Update again,,,\n"+
		"------,,,\n"+
		"Commodity Market Update,0498 765 432,c01,Contact\n"+
		"------,,,\n")

	var stored *domain.Import
	repo := &fakeImportRepo{
		createFn: func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
			stored = imp
			return nil
		},
	}

	svc := newTestService(t, repo, nil, nil)

	rep, err := svc.Run(context.Background(), path, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Queued != 1 || len(rep.Errors) != 1 {
		t.Fatalf("report = %+v, want 1 queued and 1 error", rep)
	}
	if rep.Errors[0] != "Separator missing, multiple texts in one for 0412 345 678" {
		t.Fatalf("error entry = %q", rep.Errors[0])
	}
	if stored == nil || stored.ErrorCount != 1 {
		t.Fatalf("import row = %+v, want error count 1", stored)
	}
}

func TestImportServiceRunMissingFile(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeImportRepo{}, nil, nil)

	_, err := svc.Run(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), RunOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Run() error = %v, want os.ErrNotExist", err)
	}
}

func TestNewImportServiceRequiresParser(t *testing.T) {
	t.Parallel()

	if _, err := NewImportService(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil parser")
	}
}

func newTestService(t *testing.T, repo repository.ImportRepository, importGuard guard.ImportGuard, publisher queue.Publisher) *ImportService {
	t.Helper()

	p := parser.New("+61400000000", phone.NewNormalizer(phone.Config{CountryCode: "+61"}), zap.NewNop())
	svc, err := NewImportService(p, repo, importGuard, publisher, zap.NewNop())
	if err != nil {
		t.Fatalf("NewImportService() error = %v", err)
	}

	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	return svc
}

func writeExport(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

type fakeImportRepo struct {
	createFn              func(ctx context.Context, imp *domain.Import, messages []*domain.Message) error
	getLatestByChecksumFn func(ctx context.Context, checksum string) (*domain.Import, error)
}

func (f *fakeImportRepo) Create(ctx context.Context, imp *domain.Import, messages []*domain.Message) error {
	if f.createFn != nil {
		return f.createFn(ctx, imp, messages)
	}
	return nil
}

func (f *fakeImportRepo) GetLatestByChecksum(ctx context.Context, checksum string) (*domain.Import, error) {
	if f.getLatestByChecksumFn != nil {
		return f.getLatestByChecksumFn(ctx, checksum)
	}
	return nil, domain.ErrNotFound
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.QueuedMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.QueuedMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

type fakeGuard struct {
	acquireFn func(ctx context.Context, checksum string) error
	releaseFn func(ctx context.Context, checksum string) error
}

func (f *fakeGuard) Acquire(ctx context.Context, checksum string) error {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, checksum)
	}
	return nil
}

func (f *fakeGuard) Release(ctx context.Context, checksum string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, checksum)
	}
	return nil
}
