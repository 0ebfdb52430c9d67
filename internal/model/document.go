package model

import "strings"

// DocumentType is the classification of a parsed utility document.
type DocumentType string

// Document types. AttentionNotice covers disconnect, delinquency, and
// past-due notices.
const (
	DocumentBill            DocumentType = "bill"
	DocumentAttentionNotice DocumentType = "disconnect_notice"
	DocumentUnknown         DocumentType = "unknown"
)

// ParseDocumentType maps a user-supplied string onto a DocumentType.
// Older exports used "delinquency_notice" and "notice" for attention notices.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bill":
		return DocumentBill, true
	case "disconnect_notice", "delinquency_notice", "notice":
		return DocumentAttentionNotice, true
	case "unknown":
		return DocumentUnknown, true
	default:
		return "", false
	}
}

// Sentinel is the value identity fields take when nothing could be extracted.
const Sentinel = "UNKNOWN"

// Attention reasons attached to records that need manual review.
const (
	ReasonDisconnectNotice = "DISCONNECT NOTICE - Service disconnection pending"
	ReasonNoText           = "Could not extract text from PDF"
	ReasonUnknownDocument  = "Unknown document type - manual review required"
	ReasonMissingPrefix    = "Missing required fields: "
)
