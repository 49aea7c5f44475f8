package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterValidSpec(t *testing.T) {
	s := New(nil)
	err := s.Register("scan", "0 5 23 * * 1-5", func() {})
	assert.NoError(t, err)
}

func TestRegisterInvalidSpec(t *testing.T) {
	s := New(nil)
	err := s.Register("scan", "not a cron spec", func() {})
	assert.ErrorContains(t, err, "scan")
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	s.Start()
	s.Stop()
}
