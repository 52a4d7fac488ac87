package internal

import "encoding/json"

// MaskGlyph is the canonical wildcard used in stored namelists. A masked
// token only ever matches candidates of identical rune length.
const MaskGlyph = '*'

type ValidationOutcome string

const (
	ValidationValid          ValidationOutcome = "valid"
	ValidationInvalid        ValidationOutcome = "invalid"
	ValidationCannotValidate ValidationOutcome = "cannot_validate"
)

type FailureKind string

const (
	FailNoTextLayer       FailureKind = "NO_TEXT_LAYER"
	FailEmptyResponse     FailureKind = "EMPTY_RESPONSE"
	FailMalformedResponse FailureKind = "MALFORMED_RESPONSE"
	FailTransport         FailureKind = "TRANSPORT_FAILURE"
)

// DegreeEntry is one degree track inside a department's aggregate
// namelist document. Names stays a flat comma separated string to match
// the persisted column format.
type DegreeEntry struct {
	Names    string `json:"names"`
	HasNames bool   `json:"hasNames"`
}

func (e *DegreeEntry) UnmarshalJSON(data []byte) error {
	// Oldest rows store a track as a bare comma separated string.
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		e.Names = plain
		e.HasNames = true
		return nil
	}

	var v struct {
		Names     string `json:"names"`
		HasNames  *bool  `json:"hasNames"`
		HasNames2 *bool  `json:"has_names"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	e.Names = v.Names
	e.HasNames = true
	if v.HasNames != nil {
		e.HasNames = *v.HasNames
	} else if v.HasNames2 != nil {
		e.HasNames = *v.HasNames2
	}
	return nil
}

type ExtractionResult struct {
	Success       bool
	Names         []string
	HasNames      bool
	FailureReason string
}

type DepartmentRow struct {
	School   string
	DepName  string
	Degrees  *string
	Namelist *string
}

type UserChoice struct {
	UserID     int
	Rank       int
	School     string
	Department string
	Degree     string
}

type DepartmentStats struct {
	UserRank      *int
	TotalChoices  int
	FirstChoice   int
	FifthAndAfter int
	NamelistCount int
}

type EmailVerification struct {
	ID        int
	Email     string
	Code      string
	ExpiresAt string
	Used      bool
}

type NamelistExportRow struct {
	Degree    string
	NameCount int
	HasNames  bool
	Names     string
}
