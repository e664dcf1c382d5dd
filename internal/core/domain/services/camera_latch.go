package services

import "sync/atomic"

// CameraLatch tracks whether a map view follows its subject.
// A new latch follows; any pan or drag releases it and only an explicit
// re-center engages it again. Safe for concurrent use.
type CameraLatch struct {
	released atomic.Bool
}

// NewCameraLatch creates a latch in follow mode.
func NewCameraLatch() *CameraLatch {
	return &CameraLatch{}
}

// Pan records a user drag; the camera stops following.
func (l *CameraLatch) Pan() {
	l.released.Store(true)
}

// Recenter records an explicit re-center; the camera follows again.
func (l *CameraLatch) Recenter() {
	l.released.Store(false)
}

// IsFollowing reports whether the camera re-centers on updates.
func (l *CameraLatch) IsFollowing() bool {
	return !l.released.Load()
}
