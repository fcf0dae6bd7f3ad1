/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package lotw

// FailureKind classifies why a sync operation failed.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureNetwork     FailureKind = "network"
	FailureContentType FailureKind = "content_type"
	FailureFileWrite   FailureKind = "file_write"
	FailureParameter   FailureKind = "parameter"
	FailureProtocol    FailureKind = "protocol"
	FailureRejected    FailureKind = "rejected"
	FailureUnexpected  FailureKind = "unexpected"
)

// Outcome is the result of a sync operation. Expected failures are reported
// here instead of as errors.
type Outcome struct {
	Success bool
	Message string
	Kind    FailureKind

	// Path is the saved download, set on download success.
	Path string

	// Reconciled is set when the download was fed through the
	// reconciliation engine; Added and Updated are only meaningful then.
	Reconciled bool
	Added      int
	Updated    int
}

func failure(kind FailureKind, message string) Outcome {
	return Outcome{Success: false, Kind: kind, Message: message}
}
