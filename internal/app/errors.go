package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrQueueFull  = errors.New("reconcile queue full")
)
