package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// existsIn returns an ExistsFunc backed by a fixed set of stored values.
func existsIn(values ...string) ExistsFunc {
	return func(ctx context.Context, v string) (bool, error) {
		for _, s := range values {
			if s == v {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		required bool
		wantMsg  string
	}{
		{name: "ok", value: "hello", required: true},
		{name: "blank required", value: "  ", required: true, wantMsg: "This field is required."},
		{name: "blank optional", value: "", required: false},
		{name: "too long counts characters", value: "ñññññ", required: false, wantMsg: "Ensure this value has at most 4 characters (it has 5)."},
		{name: "exactly max", value: "ññññ", required: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Text("field", tt.value, 4, tt.required)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "field", fe.Field)
			assert.Equal(t, tt.wantMsg, fe.Message)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   string
		exists  ExistsFunc
		wantErr error
	}{
		{name: "success: free address", email: "ana@example.com", exists: existsIn("bob@example.com")},
		{name: "failure: missing at sign", email: "ana.example.com", exists: existsIn(), wantErr: ErrInvalidFormat},
		{name: "failure: empty", email: "", exists: existsIn(), wantErr: ErrInvalidFormat},
		{name: "failure: taken", email: "bob@example.com", exists: existsIn("bob@example.com"), wantErr: ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Email(context.Background(), tt.email, tt.exists)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "email", fe.Field)
		})
	}
}

func TestEmail_FormatCheckedBeforeLookup(t *testing.T) {
	t.Parallel()

	called := false
	exists := func(ctx context.Context, v string) (bool, error) {
		called = true
		return true, nil
	}

	err := Email(context.Background(), "not-an-email", exists)

	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.False(t, called, "lookup must not run for a malformed address")
}

func TestEmail_LookupFailure(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("database down")
	err := Email(context.Background(), "ana@example.com", func(ctx context.Context, v string) (bool, error) {
		return false, dbErr
	})

	assert.ErrorIs(t, err, dbErr)
	var fe *FieldError
	assert.False(t, errors.As(err, &fe), "infrastructure errors are not field errors")
}

func TestUsername(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Username(context.Background(), "ana", existsIn("bob")))
	assert.ErrorIs(t, Username(context.Background(), "bob", existsIn("bob")), ErrDuplicate)
}

func TestPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		repeated string
		wantErr  error
	}{
		{name: "success: long enough and matching", password: "password123", repeated: "password123"},
		{name: "success: exactly minimum length", password: "12345678", repeated: "12345678"},
		{name: "failure: mismatch", password: "password123", repeated: "password124", wantErr: ErrMismatch},
		{name: "failure: too short", password: "short", repeated: "short", wantErr: ErrTooShort},
		{name: "failure: mismatch reported before length", password: "short", repeated: "other", wantErr: ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Password(tt.password, tt.repeated)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNotFutureDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Second)

	assert.NoError(t, NotFutureDate(&past, now))
	assert.NoError(t, NotFutureDate(&now, now), "a date equal to now is not in the future")
	assert.ErrorIs(t, NotFutureDate(&future, now), ErrFutureDate)
	assert.ErrorIs(t, NotFutureDate(nil, now), ErrFutureDate)
}

func TestUniqueWithinScope(t *testing.T) {
	t.Parallel()

	assert.NoError(t, UniqueWithinScope("name", "Trips", []string{"Books"}))
	assert.NoError(t, UniqueWithinScope("name", "Trips", []string{}))
	assert.NoError(t, UniqueWithinScope("name", "trips", []string{"Trips"}), "comparison is case-sensitive")
	assert.ErrorIs(t, UniqueWithinScope("name", "Trips", []string{"Books", "Trips"}), ErrScopeConflict)

	err := UniqueWithinScope("name", "Trips", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	var fe *FieldError
	assert.False(t, errors.As(err, &fe), "invalid input is never a user-facing field error")
}

func TestErrors_Collect(t *testing.T) {
	t.Parallel()

	var errs Errors
	require.NoError(t, errs.Collect(nil))
	require.NoError(t, errs.Collect(Password("a", "b")))
	require.NoError(t, errs.Collect(Username(context.Background(), "bob", existsIn("bob"))))

	infra := errors.New("boom")
	assert.Same(t, infra, errs.Collect(infra))

	assert.True(t, errs.HasErrors())
	assert.Len(t, errs, 2)
	assert.Equal(t, []string{"Passwords do not match.", "This username is already taken."}, errs.Messages())
	assert.Equal(t, []string{"This username is already taken."}, errs.Field("username"))

	err := errs.Err()
	assert.ErrorIs(t, err, ErrMismatch)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, ok := AsErrors(err)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestErrors_ErrNilWhenEmpty(t *testing.T) {
	t.Parallel()

	var errs Errors
	assert.Nil(t, errs.Err())
	assert.False(t, errs.HasErrors())
}
