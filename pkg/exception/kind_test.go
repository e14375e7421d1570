package exception

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("symbol: %w", ErrValidation)))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("consolidated missing: %w", ErrConflict)))
	assert.Equal(t, KindTransport, KindOf(fmt.Errorf("wait: %w", ErrTimeout)))
	assert.Equal(t, KindTransport, KindOf(ErrPublish))
	assert.Equal(t, KindPersistence, KindOf(fmt.Errorf("disk on fire")))
}

func TestTimeoutIsDistinctFromDomainFailures(t *testing.T) {
	assert.False(t, errors.Is(ErrTimeout, ErrNotFound))
	assert.False(t, errors.Is(ErrTimeout, ErrValidation))
	assert.False(t, errors.Is(ErrPublish, ErrTimeout))
}

func TestKindErrRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindValidation, KindNotFound, KindConflict, KindTransport, KindPersistence} {
		assert.Equal(t, k, KindOf(k.Err()))
	}
	assert.NoError(t, KindNone.Err())
	assert.Equal(t, ErrPersistence, Kind("bogus").Err())
}
