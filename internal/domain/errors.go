package domain

import "errors"

var (
	ErrProbeFailure     = errors.New("probe failed")
	ErrPushFailure      = errors.New("status push failed")
	ErrDNSLookupFailure = errors.New("dns record lookup failed")
	ErrDNSUpdateFailure = errors.New("dns record update failed")
)
