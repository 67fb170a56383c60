package domain

import "errors"

var (
	// ErrAssetMissing signals that a bundled watermark or font asset could not be
	// opened or decoded. It is raised before anything is written to the sink.
	ErrAssetMissing = errors.New("report asset missing")
	// ErrStreamWrite signals that the sink rejected a write or the final close.
	// Part of the document may already have reached the sink.
	ErrStreamWrite = errors.New("report stream write failed")
	// ErrDocument signals that the document primitive failed while composing
	// pages. Nothing has been written to the sink.
	ErrDocument = errors.New("report document build failed")
	// ErrUpstream signals a transport failure talking to the upstream API.
	ErrUpstream = errors.New("upstream request failed")
)
