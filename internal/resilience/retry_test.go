package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

// failing returns fn that fails with err until it has been called n times.
func failing(n int, err error, calls *int) func(context.Context) (string, error) {
	return func(_ context.Context) (string, error) {
		*calls++
		if *calls <= n {
			return "", err
		}
		return "ok", nil
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	v, err := Do(context.Background(), DefaultPolicy(), failing(0, nil, &calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	v, err := Do(context.Background(), fastPolicy(3), failing(2, statusErr(503), &calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastPolicy(3), failing(10, statusErr(500), &calls))
	require.Error(t, err)
	assert.Equal(t, 4, calls, "first attempt plus three retries")
	assert.Equal(t, statusErr(500), err)
}

func TestDo_FinalStatusNotRetried(t *testing.T) {
	for _, code := range []int{400, 404, 408, 422} {
		var calls int
		_, err := Do(context.Background(), fastPolicy(3), failing(10, statusErr(code), &calls))
		require.Error(t, err)
		assert.Equal(t, 1, calls, "status %d", code)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), fastPolicy(0), failing(10, statusErr(503), &calls))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, failing(10, statusErr(503), &calls))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestDo_CustomShouldRetryAndOnRetry(t *testing.T) {
	var retries []int
	p := fastPolicy(2)
	p.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }
	p.OnRetry = func(retry int, _ error) { retries = append(retries, retry) }

	var calls int
	_, err := Do(context.Background(), p, failing(10, errors.New("retry me"), &calls))
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 250*time.Millisecond, p.Delay(3), "capped")
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
}
