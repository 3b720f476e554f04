package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "detail string",
			body: `{"detail":"No active account found with the given credentials"}`,
			want: "No active account found with the given credentials",
		},
		{
			name: "detail list",
			body: `{"detail":["first","second"]}`,
			want: "first, second",
		},
		{
			name: "field errors sorted by field",
			body: `{"username":["taken"],"email":["invalid","too long"]}`,
			want: "email: invalid, too long | username: taken",
		},
		{
			name: "field error as plain string",
			body: `{"password":"too short"}`,
			want: "password: too short",
		},
		{
			name: "non JSON body",
			body: "Bad Request",
			want: "Bad Request",
		},
		{
			name: "empty body",
			body: "",
			want: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidationError(http.StatusBadRequest, []byte(tt.body), ErrValidationFailed)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := newValidationError(http.StatusUnauthorized, []byte(`{}`), ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "validation failed: invalid credentials", err.Error())

	var zero ValidationError
	assert.ErrorIs(t, &zero, ErrValidationFailed)
}

func TestAuthenticationErrors(t *testing.T) {
	assert.ErrorIs(t, ErrNoRefreshCredential, ErrAuthenticationExpired)
	assert.ErrorIs(t, ErrRefreshFailed, ErrAuthenticationExpired)
	assert.NotErrorIs(t, ErrRefreshFailed, ErrNoRefreshCredential)
}
