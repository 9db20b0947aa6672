package web

import "errors"

var (
	// ErrServerNotStarted Server 未启动
	ErrServerNotStarted = errors.New("web: server not started")

	// ErrServerAlreadyStarted Server 已启动
	ErrServerAlreadyStarted = errors.New("web: server already started")
)
