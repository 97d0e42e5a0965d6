package convert

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported       = errors.New("convert: unsupported operation")
	ErrConfig            = errors.New("convert: invalid format")
	ErrMismatch          = errors.New("convert: input mismatch")
	ErrShortInput        = errors.New("convert: short input")
	ErrRange             = errors.New("convert: value not representable")
	ErrSyntax            = errors.New("convert: format syntax error")
	ErrUnknownConversion = errors.New("convert: unknown conversion")
	ErrDuplicate         = errors.New("convert: conversion already registered")
	ErrNilConverter      = errors.New("convert: converter is nil")
	ErrSealed            = errors.New("convert: registry is sealed")
)

// ConfigError reports a descriptor that a converter cannot work with.
type ConfigError struct {
	Conv   byte
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("convert: invalid %%%c format: %s", e.Conv, e.Reason)
}

func (e ConfigError) Unwrap() error {
	return ErrConfig
}

func configErrorf(conv byte, format string, args ...any) error {
	return ConfigError{Conv: conv, Reason: fmt.Sprintf(format, args...)}
}

// MismatchError reports input that does not match the expected structure.
// Expected and Got hold byte values or lengths depending on Field; Cause is
// set when the input ended or was malformed before a comparison was possible.
type MismatchError struct {
	Conv     byte
	Field    string
	Expected int
	Got      int
	Cause    error
}

func (e MismatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("convert: %%%c %s: %v", e.Conv, e.Field, e.Cause)
	}
	return fmt.Sprintf("convert: %%%c %s mismatch: expected %#02x, got %#02x", e.Conv, e.Field, e.Expected, e.Got)
}

func (e MismatchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMismatch}
	}
	return []error{ErrMismatch, e.Cause}
}
