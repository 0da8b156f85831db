package incrementer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

func TestRunIDIncrementer(t *testing.T) {
	inc := NewRunIDIncrementer("")

	first := inc.GetNext(nil)
	assert.Equal(t, int64(1), first[DefaultRunIDKey])

	// a value read back from the ledger is a float64
	next := inc.GetNext(model.JobParameters{DefaultRunIDKey: float64(41), "keep": "me"})
	assert.Equal(t, int64(42), next[DefaultRunIDKey])
	assert.Equal(t, "me", next["keep"])

	assert.Equal(t, int64(1), inc.GetNext(model.JobParameters{DefaultRunIDKey: "x"})[DefaultRunIDKey])
}

func TestRunIDIncrementer_DoesNotMutateInput(t *testing.T) {
	in := model.JobParameters{DefaultRunIDKey: int64(3)}
	NewRunIDIncrementer("").GetNext(in)
	assert.Equal(t, int64(3), in[DefaultRunIDKey])
}

func TestTimestampIncrementer(t *testing.T) {
	inc := NewTimestampIncrementer("")
	inc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) }

	next := inc.GetNext(model.JobParameters{DefaultTimestampKey: "old"})
	assert.Equal(t, "2024-01-02T02:04:05Z", next[DefaultTimestampKey])
}

func TestChain(t *testing.T) {
	ts := NewTimestampIncrementer("")
	ts.now = func() time.Time { return time.Unix(0, 0) }

	next := Chain(model.JobParameters{DefaultRunIDKey: int64(1)}, NewRunIDIncrementer(""), ts)
	assert.Equal(t, model.JobParameters{DefaultRunIDKey: int64(2), DefaultTimestampKey: "1970-01-01T00:00:00Z"}, next)
}
