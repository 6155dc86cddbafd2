package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRemoteMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Kind
	}{
		{
			name:    "expired code",
			message: "authorization code expired, try again",
			want:    KindExpiredCode,
		},
		{
			name:    "expired uppercase",
			message: "Authorization Code EXPIRED",
			want:    KindExpiredCode,
		},
		{
			name:    "timeout is not expired",
			message: "network error: timeout",
			want:    KindRemoteRejection,
		},
		{
			name:    "plain rejection",
			message: "invalid client key",
			want:    KindRemoteRejection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRemoteMessage(tt.message))
		})
	}
}

func TestKindOf(t *testing.T) {
	flowErr := newError(KindMissingInput, "no authorization code found in the URL")
	assert.Equal(t, KindMissingInput, KindOf(flowErr))

	wrapped := fmt.Errorf("processing callback: %w", flowErr)
	assert.Equal(t, KindMissingInput, KindOf(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("some other error")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := wrapError(KindNetworkFailure, cause, "network error: token endpoint unreachable")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "token endpoint unreachable")
}
