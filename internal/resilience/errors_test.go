package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad input"), false},
		{"explicit", Transient(errors.New("x")), true},
		{"wrapped explicit", eris.Wrap(Transient(errors.New("x")), "ctx"), true},
		{"status 503", &StatusError{StatusCode: 503}, true},
		{"status 429 wrapped", fmt.Errorf("call: %w", &StatusError{StatusCode: 429}), true},
		{"status 404", &StatusError{StatusCode: 404}, false},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"timeout", timeoutErr{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "openai: unexpected status 500", (&StatusError{Service: "openai", StatusCode: 500}).Error())
	assert.Equal(t, "openai: unexpected status 401: invalid key",
		(&StatusError{Service: "openai", StatusCode: 401, Body: " invalid key\n"}).Error())
}

func TestTransient_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Transient(nil))
}
