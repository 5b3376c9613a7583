// =================================================================================
//
//			patchbay - https://www.foxhollow.cc/projects/patchbay/
//
//		 Patchbay is a small audio routing engine that continuously copies
//	  samples between hardware devices with channel mapping and per-route gain
//
//		 Copyright (c) 2026 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package audio

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the control surface can return. Hardware
// callbacks never return errors; they output silence and advance counters.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrNoSession
	ErrInvalidArgs
	ErrDeviceNotFound
	ErrSampleRateNotSupported
	ErrSampleRateSetFailed
	ErrBufferSetFailed
	ErrInvalidInputChannel
	ErrInvalidOutputChannel
	ErrInputStartFailed
	ErrOutputStartFailed
	ErrInvalidDeviceChannels
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNoSession:
		return "no_session"
	case ErrInvalidArgs:
		return "invalid_args"
	case ErrDeviceNotFound:
		return "device_not_found"
	case ErrSampleRateNotSupported:
		return "sample_rate_not_supported"
	case ErrSampleRateSetFailed:
		return "sample_rate_set_failed"
	case ErrBufferSetFailed:
		return "buffer_set_failed"
	case ErrInvalidInputChannel:
		return "invalid_input_channel"
	case ErrInvalidOutputChannel:
		return "invalid_output_channel"
	case ErrInputStartFailed:
		return "input_start_failed"
	case ErrOutputStartFailed:
		return "output_start_failed"
	case ErrInvalidDeviceChannels:
		return "invalid_device_channels"
	}
	return "unknown"
}

// Error is the typed error returned by every control-domain operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind.String(), e.Message, e.Err.Error())
	}

	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf extracts the ErrorKind from any error returned by this package.
func KindOf(err error) ErrorKind {
	var perr *Error

	if errors.As(err, &perr) {
		return perr.Kind
	}

	return ErrUnknown
}
