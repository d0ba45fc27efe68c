package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Token related errors
	ErrRefreshNotFound = errors.New("refresh record not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
