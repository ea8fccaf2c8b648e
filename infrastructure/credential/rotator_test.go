package credential_test

import (
	"sync"
	"testing"

	"channel-insight/domain/model"
	"channel-insight/infrastructure/credential"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(names ...string) []model.Credential {
	out := make([]model.Credential, 0, len(names))
	for _, n := range names {
		out = append(out, model.Credential{APIKey: n})
	}
	return out
}

func TestNewRotator_NoCredentials(t *testing.T) {
	r, err := credential.NewRotator(nil)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, model.ErrNoCredentials)
}

func TestRotator_RoundRobin(t *testing.T) {
	r, err := credential.NewRotator(keys("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Size())

	var got []string
	for i := 0; i < 7; i++ {
		got = append(got, r.Acquire().APIKey)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, got)
}

func TestRotator_ConcurrentAcquireIsEven(t *testing.T) {
	r, err := credential.NewRotator(keys("a", "b", "c", "d"))
	require.NoError(t, err)

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := r.Acquire().APIKey
				mu.Lock()
				counts[k]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, k := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 200, counts[k], k)
	}
}
