package perfstats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeAccumulator(t *testing.T) {
	a := TimeAccumulator{}
	require.Equal(t, time.Duration(0), a.Average())
	a.AddSample(10 * time.Millisecond)
	a.AddSample(30 * time.Millisecond)
	require.Equal(t, int64(2), a.Samples)
	require.Equal(t, 20*time.Millisecond, a.Average())
}

func TestTimeRegistry(t *testing.T) {
	r := TimeRegistry{}
	require.Equal(t, int64(0), r.Get("missing").Samples)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddSample("detector", time.Millisecond)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(8), r.Get("detector").Samples)
	require.Equal(t, time.Millisecond, r.Get("detector").Average())
}
