package space

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsage reports a fixed free-byte count per volume.
type fakeUsage struct {
	free map[string]uint64
	err  error
}

func (f fakeUsage) FreeBytes(path string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.free[path], nil
}

func TestHasRoom(t *testing.T) {
	guard := NewGuard(fakeUsage{free: map[string]uint64{"/mnt/a": 1000}}, 100)

	tests := []struct {
		name     string
		required uint64
		want     bool
	}{
		{"fits with margin to spare", 500, true},
		{"fits exactly at margin boundary", 900, true},
		{"margin would be violated", 901, false},
		{"larger than volume", 2000, false},
		{"zero bytes still needs margin", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.HasRoom("/mnt/a", tt.required))
		})
	}
}

func TestHasRoomQueryFailure(t *testing.T) {
	guard := NewGuard(fakeUsage{err: errors.New("device gone")}, 100)

	// A failed free-space query must deny admission, not panic or admit.
	assert.False(t, guard.HasRoom("/mnt/a", 1))
}

func TestAvailableBytes(t *testing.T) {
	guard := NewGuard(fakeUsage{free: map[string]uint64{"/mnt/a": 4096}}, 100)

	free, err := guard.AvailableBytes("/mnt/a")
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), free)
}

func TestNewGuardDefaults(t *testing.T) {
	guard := NewGuard(nil, 0)
	assert.Equal(t, uint64(DefaultMargin), guard.Margin())
}

func TestStatfsUsage(t *testing.T) {
	free, err := StatfsUsage{}.FreeBytes(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
