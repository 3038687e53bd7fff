package models

import "fmt"

// Error types for the ingestion pipeline. Parser-level errors
// (MalformedAmountError, ParseAmbiguityError) cause the offending line to be
// skipped; transaction-level errors (DuplicateError, OutOfPeriodError,
// ValidationError) route the single transaction to the rejection report.
// None of them aborts the document.

// MalformedAmountError indicates a numeric token could not be parsed.
type MalformedAmountError struct {
	Token string
}

func (e *MalformedAmountError) Error() string {
	return fmt.Sprintf("malformed amount token %q", e.Token)
}

// ParseAmbiguityError indicates a line's numeric columns could not be
// unambiguously classified as fee/debit/credit.
type ParseAmbiguityError struct {
	Line   string
	Reason string
}

func (e *ParseAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous statement line: %s", e.Reason)
}

// ValidationError indicates a transaction is missing a required field or
// violates an amount invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DuplicateError indicates a transaction whose fingerprint already exists.
type DuplicateError struct {
	Existing *SavedTransaction
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("transaction already exists (uploaded on %s)",
		e.Existing.UploadedAt.Format("2006-01-02"))
}

// OutOfPeriodError indicates a transaction dated outside the selected
// fiscal period.
type OutOfPeriodError struct {
	Message string
}

func (e *OutOfPeriodError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
