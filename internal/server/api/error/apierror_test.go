package apierror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	apierror "github.com/vanilla-wiiu/govanilla/internal/server/api/error"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apitypes.ApiError
	}{
		{name: "value", err: apierror.ErrConflict("busy"), want: apitypes.ApiError{Status: 409, Title: "Conflict", Detail: "busy"}},
		{name: "wrapped value", err: fmt.Errorf("ctx: %w", apierror.ErrNotFound("x")), want: apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "x"}},
		{name: "pointer", err: &apitypes.ApiError{Status: 503, Title: "Service Unavailable", Detail: "closed"}, want: apierror.ErrUnavailable("closed")},
		{name: "plain", err: errors.New("boom"), want: apierror.ErrInternal("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apierror.WrapError(tt.err))
		})
	}
}
