package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(CodePersistence, "failed to persist member", cause)

	assert.Equal(t, "failed to persist member: pq: connection refused", err.Error())
	assert.Equal(t, "failed to persist member", MessageOf(err), "cause never reaches clients")
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(CodeChannelNotReady, "delivery channel is degraded")
	outer := fmt.Errorf("send card: %w", inner)

	assert.True(t, Is(outer, CodeChannelNotReady))
	assert.False(t, Is(outer, CodeDelivery))
	assert.False(t, Is(errors.New("plain"), CodeChannelNotReady))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeDuplicate, CodeOf(New(CodeDuplicate, "dup")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageOfUncoded(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("sensitive detail")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:      http.StatusBadRequest,
		CodeDuplicate:       http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeChannelNotReady: http.StatusOK,
		CodeDelivery:        http.StatusOK,
		CodeAllocation:      http.StatusInternalServerError,
		CodeRender:          http.StatusInternalServerError,
		CodePersistence:     http.StatusInternalServerError,
		CodeInternal:        http.StatusInternalServerError,
		Code("unknown"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
