package credential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/mocks"
)

func TestCredential_ConcurrentCallersShareOneFetch(t *testing.T) {
	// Arrange
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	source := &mocks.MockCredentialSource{
		FetchCredentialFunc: func(ctx context.Context) (string, error) {
			once.Do(func() { close(started) })
			<-release
			return "sk-shared", nil
		},
	}
	service := NewService(source, nil, time.Second, zap.NewNop())

	// Act
	const callers = 20
	results := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- service.Credential(context.Background())
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	// Assert
	for key := range results {
		if key != "sk-shared" {
			t.Errorf("expected every caller to see 'sk-shared', got %q", key)
		}
	}
	if source.Calls() != 1 {
		t.Errorf("expected exactly one fetch, got %d", source.Calls())
	}
}

func TestCredential_MemoizedAfterSuccess(t *testing.T) {
	source := &mocks.MockCredentialSource{}
	service := NewService(source, nil, time.Second, zap.NewNop())

	first := service.Credential(context.Background())
	second := service.Credential(context.Background())

	if first != "sk-test" || second != "sk-test" {
		t.Errorf("unexpected keys %q, %q", first, second)
	}
	if source.Calls() != 1 {
		t.Errorf("expected the key to be memoized, got %d fetches", source.Calls())
	}
}

func TestCredential_FailureIsNotCached(t *testing.T) {
	// Arrange
	attempts := 0
	source := &mocks.MockCredentialSource{
		FetchCredentialFunc: func(ctx context.Context) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("keystore: HTTP 503")
			}
			return "sk-second", nil
		},
	}
	service := NewService(source, nil, time.Second, zap.NewNop())

	// Act
	first := service.Credential(context.Background())
	second := service.Credential(context.Background())

	// Assert
	if first != "" {
		t.Errorf("expected empty credential after a failed fetch, got %q", first)
	}
	if second != "sk-second" {
		t.Errorf("expected a fresh fetch to succeed, got %q", second)
	}
	if source.Calls() != 2 {
		t.Errorf("expected 2 fetches, got %d", source.Calls())
	}
}

func TestCredential_EmptyKeyIsFailure(t *testing.T) {
	source := &mocks.MockCredentialSource{
		FetchCredentialFunc: func(ctx context.Context) (string, error) { return "", nil },
	}
	service := NewService(source, nil, time.Second, zap.NewNop())

	if key := service.Credential(context.Background()); key != "" {
		t.Errorf("expected empty credential, got %q", key)
	}
	service.Credential(context.Background())
	if source.Calls() != 2 {
		t.Errorf("an empty key must not be memoized, got %d fetches", source.Calls())
	}
}

func TestCredential_CallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	// Arrange
	release := make(chan struct{})
	fetched := make(chan error, 1)
	source := &mocks.MockCredentialSource{
		FetchCredentialFunc: func(ctx context.Context) (string, error) {
			<-release
			fetched <- ctx.Err()
			return "sk-late", nil
		},
	}
	service := NewService(source, nil, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	// Act
	done := make(chan string, 1)
	go func() { done <- service.Credential(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	// Assert
	select {
	case key := <-done:
		if key != "" {
			t.Errorf("expected empty credential for a cancelled caller, got %q", key)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	if err := <-fetched; err != nil {
		t.Errorf("shared fetch context must survive caller cancellation, got %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for service.Credential(context.Background()) != "sk-late" {
		if time.Now().After(deadline) {
			t.Fatal("expected the late result to be memoized")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if source.Calls() != 1 {
		t.Errorf("expected one fetch, got %d", source.Calls())
	}
}

func TestWarm_PublishesStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		status := mocks.NewMockStatusSink()
		service := NewService(&mocks.MockCredentialSource{}, status, time.Second, zap.NewNop())

		if err := service.Warm(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := status.Statuses()
		if len(got) != 2 || got[0] != domain.StatusLoadingCredential || got[1] != domain.StatusListening {
			t.Errorf("unexpected statuses %v", got)
		}
	})

	t.Run("failure", func(t *testing.T) {
		status := mocks.NewMockStatusSink()
		source := &mocks.MockCredentialSource{
			FetchCredentialFunc: func(ctx context.Context) (string, error) {
				return "", errors.New("keystore: field missing")
			},
		}
		service := NewService(source, status, time.Second, zap.NewNop())

		if err := service.Warm(context.Background()); err == nil {
			t.Fatal("expected an error")
		}

		events := status.Events()
		last := events[len(events)-1]
		if last.Status != domain.StatusNoCredential || last.Mode != domain.ModeError {
			t.Errorf("unexpected final status %+v", last)
		}
	})
}

func TestReset_ForcesRefetch(t *testing.T) {
	source := &mocks.MockCredentialSource{}
	service := NewService(source, nil, time.Second, zap.NewNop())

	service.Credential(context.Background())
	if !service.Loaded() {
		t.Fatal("expected the key to be loaded")
	}
	service.Reset()
	if service.Loaded() {
		t.Error("expected Reset to forget the key")
	}
	service.Credential(context.Background())

	if source.Calls() != 2 {
		t.Errorf("expected a refetch after Reset, got %d fetches", source.Calls())
	}
}
