package errs_test

import (
	"errors"
	"testing"

	"ordertrack/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNotFoundError(t *testing.T) {
	t.Run("should carry the missing id", func(t *testing.T) {
		err := errs.NewObjectNotFoundError("order_id", "7c1e")

		assert.Equal(t, "order_id", err.ParamName)
		assert.Equal(t, "7c1e", err.ID)
		require.NoError(t, err.Cause)
		assert.Equal(t, "object not found: 7c1e", err.Error())
		assert.Equal(t, errs.ErrObjectNotFound, err.Unwrap())
	})

	t.Run("should name the param when a cause is given", func(t *testing.T) {
		cause := errors.New("record not found")
		err := errs.NewObjectNotFoundErrorWithCause("order_id", "7c1e", cause)

		assert.Equal(t, cause, err.Cause)
		assert.Equal(t,
			"object not found: param is: order_id, ID is: 7c1e (cause: record not found)",
			err.Error())
	})

	t.Run("should format non-string ids", func(t *testing.T) {
		err := errs.NewObjectNotFoundError("partner_id", 42)
		assert.Equal(t, "object not found: %!s(int=42)", err.Error())
	})
}

func TestValueErrors(t *testing.T) {
	cause := errors.New("latitude out of range")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "invalid",
			err:      errs.NewValueIsInvalidError("pickup_point"),
			sentinel: errs.ErrValueIsInvalid,
			message:  "value is invalid: pickup_point",
		},
		{
			name:     "invalid with cause",
			err:      errs.NewValueIsInvalidErrorWithCause("pickup_point", cause),
			sentinel: errs.ErrValueIsInvalid,
			message:  "value is invalid: pickup_point (cause: latitude out of range)",
		},
		{
			name:     "required",
			err:      errs.NewValueIsRequiredError("drop_point"),
			sentinel: errs.ErrValueIsRequired,
			message:  "value is required: drop_point",
		},
		{
			name:     "required with cause",
			err:      errs.NewValueIsRequiredErrorWithCause("drop_point", errors.New("delivery mode")),
			sentinel: errs.ErrValueIsRequired,
			message:  "value is required: drop_point (cause: delivery mode)",
		},
		{
			name:     "out of range",
			err:      errs.NewValueIsOutOfRangeError("lat", 91.5, -90, 90),
			sentinel: errs.ErrValueIsOutOfRange,
			message:  "value is invalid: 91.5 is lat, min value is -90, max value is 90",
		},
		{
			name:     "out of range with cause",
			err:      errs.NewValueIsOutOfRangeErrorWithCause("total_minor", -5, 0, 1000000, cause),
			sentinel: errs.ErrValueIsOutOfRange,
			message:  "value is invalid: -5 is total_minor, min value is 0, max value is 1000000 (cause: latitude out of range)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			require.ErrorIs(t, tt.err, tt.sentinel)
		})
	}

	t.Run("should keep out of range details", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("lng", 181.0, -180, 180)

		assert.Equal(t, "lng", err.ParamName)
		assert.InDelta(t, 181.0, err.Value, 0)
		assert.Equal(t, -180, err.Min)
		assert.Equal(t, 180, err.Max)
	})

	t.Run("should flatten newlines in values", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("note", "leave at\ndoor", 0, 10)
		assert.Contains(t, err.Error(), "leave at door")
		assert.NotContains(t, err.Error(), "\n")
	})
}

func TestConflictError(t *testing.T) {
	t.Run("should report expected and actual state", func(t *testing.T) {
		err := errs.NewConflictError("status", "accepted", "cancelled")

		assert.Equal(t, "status", err.ParamName)
		assert.Equal(t, "accepted", err.Expected)
		assert.Equal(t, "cancelled", err.Actual)
		require.NoError(t, err.Cause)
		assert.Equal(t, "conflict: status expected accepted, got cancelled", err.Error())
		require.ErrorIs(t, err, errs.ErrConflict)
	})

	t.Run("should append the cause", func(t *testing.T) {
		cause := errors.New("row changed")
		err := errs.NewConflictErrorWithCause("status", "accepted", "cancelled", cause)

		assert.Equal(t, cause, err.Cause)
		assert.Equal(t, "conflict: status expected accepted, got cancelled (cause: row changed)", err.Error())
	})

	t.Run("should be found through wrapping", func(t *testing.T) {
		wrapped := errors.Join(errors.New("claim order"), errs.NewConflictError("partner_id", nil, "taken"))

		var conflict *errs.ConflictError
		require.ErrorAs(t, wrapped, &conflict)
		assert.Equal(t, "partner_id", conflict.ParamName)
	})
}

func TestSentinelMessages(t *testing.T) {
	assert.Equal(t, "object not found", errs.ErrObjectNotFound.Error())
	assert.Equal(t, "value is invalid", errs.ErrValueIsInvalid.Error())
	assert.Equal(t, "value is out of range", errs.ErrValueIsOutOfRange.Error())
	assert.Equal(t, "value is required", errs.ErrValueIsRequired.Error())
	assert.Equal(t, "conflict", errs.ErrConflict.Error())
}
