package code

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		InvalidJSON:    400,
		InvalidPayload: 400,
		MissingParam:   400,
		InvalidParam:   400,
		Unauthorized:   401,
		Forbidden:      403,
		NotFound:       404,
		RateLimited:    429,
		DBError:        500,
		InternalError:  500,
		Kind("BOGUS"):  500,
	}
	for kind, status := range cases {
		assert.Equal(t, status, GetStatus(kind), string(kind))
	}
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	cause := errors.New("dial tcp: connection refused")
	e := AsError(cause)
	assert.Equal(t, InternalError, e.Kind)
	assert.Equal(t, "Unknown error", e.Message)
	assert.ErrorIs(t, e, cause)

	wrapped := fmt.Errorf("insert: %w", Wrap(DBError, cause, "Failed to save reading"))
	e = AsError(wrapped)
	assert.Equal(t, DBError, e.Kind)
	assert.Equal(t, "Failed to save reading", e.Message)
	assert.True(t, Is(wrapped, DBError))
	assert.False(t, Is(wrapped, NotFound))
}

func TestWithDetails(t *testing.T) {
	e := WithDetails(InvalidPayload, "", map[string]string{"device_id": "is required"})
	assert.Equal(t, "Payload failed validation", e.Message)
	assert.NotNil(t, e.Details)
	assert.Equal(t, "[INVALID_PAYLOAD] Payload failed validation", e.Error())
}
