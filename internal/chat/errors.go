package chat

import "github.com/pkg/errors"

var (
	ErrNoTarget     = errors.New("chat: no conversation selected")
	ErrEmptyMessage = errors.New("chat: message is empty")
	ErrEmptyFile    = errors.New("chat: attachment is empty")
	ErrFileTooLarge = errors.New("chat: attachment exceeds upload limit")
)
