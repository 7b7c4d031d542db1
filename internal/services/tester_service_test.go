package services

import (
	"errors"
	"testing"

	contextutils "betaportal/internal/utils"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterInsertError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode contextutils.ErrorCode
		wantMsg  string
	}{
		{"email race", &pq.Error{Code: "23505", Constraint: "testers_email_key"}, contextutils.ErrorCodeRecordExists, "An application with this email already exists"},
		{"external id race", &pq.Error{Code: "23505", Constraint: testersExternalIDKey}, contextutils.ErrorCodeRecordExists, "An application for this account already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registerInsertError(tt.err)
			var appErr *contextutils.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}

	t.Run("other failure", func(t *testing.T) {
		err := registerInsertError(errors.New("connection reset"))
		require.Error(t, err)
		assert.NotEqual(t, contextutils.ErrorCodeRecordExists, contextutils.GetErrorCode(err))
	})
}
