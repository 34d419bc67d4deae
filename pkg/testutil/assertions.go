package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/model"
)

// RequireValidationError fails the test unless err is a ValidationError that
// names field.
func RequireValidationError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)

	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Fatalf("ValidationError %v does not name field %q", verr, field)
}

// AssertModelUnavailable checks that err is a ModelUnavailableError.
func AssertModelUnavailable(t *testing.T, err error) {
	t.Helper()
	var merr *model.ModelUnavailableError
	assert.True(t, errors.As(err, &merr), "expected ModelUnavailableError, got %v", err)
}
