package core

import "errors"

// Common errors.
var (
	ErrClosed    = errors.New("store is closed")
	ErrQueueFull = errors.New("write queue is full")
	ErrOffline   = errors.New("remote is offline")
)
