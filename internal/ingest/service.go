package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gradlist/internal"
	"gradlist/internal/config"
	"gradlist/internal/extraction"
	"gradlist/internal/namelist"
	"gradlist/internal/storage"
	"gradlist/internal/webfetch"
)

var (
	ErrMissingIdentifier = errors.New("missing required identifier")
	ErrNoNames           = errors.New("no names extracted")
	ErrNoPageContent     = errors.New("page had no usable content")
)

// RejectedError carries the backend's own negative verdict: the
// document simply does not contain the requested department's list.
// This is an expected business outcome, not a technical failure, and
// the user recovers by supplying a different document.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "backend rejected document: " + e.Reason
}

type Service struct {
	db      *storage.DB
	cfg     config.Config
	client  *extraction.Client
	fetcher *webfetch.Fetcher
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		client:  extraction.NewClient(cfg),
		fetcher: webfetch.NewFetcher(cfg),
	}
}

type Result struct {
	Degree   string
	Count    int
	HasNames bool
}

// IngestFile extracts one degree track's namelist from an uploaded
// document and merges it into the department's aggregate record.
func (s *Service) IngestFile(ctx context.Context, school, department, degree, filename string, blob []byte) (Result, error) {
	if err := requireIdentifiers(school, department, degree); err != nil {
		return Result{}, err
	}

	res, err := s.client.ExtractFromFile(ctx, targetKey(school, department, degree), filename, blob)
	if err != nil {
		return Result{}, err
	}
	return s.store(school, department, degree, res)
}

// IngestURL fetches a web page, reduces it to plain text and runs the
// same extraction and merge as a file upload.
func (s *Service) IngestURL(ctx context.Context, school, department, degree, url string) (Result, error) {
	if err := requireIdentifiers(school, department, degree); err != nil {
		return Result{}, err
	}

	text, err := s.fetcher.PageText(ctx, url)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoPageContent
	}

	res, err := s.client.ExtractFromText(ctx, targetKey(school, department, degree), text)
	if err != nil {
		return Result{}, err
	}
	return s.store(school, department, degree, res)
}

// IngestNames stores a manually entered namelist, skipping extraction.
func (s *Service) IngestNames(school, department, degree string, names []string) (Result, error) {
	if err := requireIdentifiers(school, department, degree); err != nil {
		return Result{}, err
	}
	return s.store(school, department, degree, internal.ExtractionResult{
		Success:  true,
		Names:    names,
		HasNames: true,
	})
}

func (s *Service) store(school, department, degree string, res internal.ExtractionResult) (Result, error) {
	if !res.Success {
		return Result{}, &RejectedError{Reason: res.FailureReason}
	}

	names := namelist.NormalizeMasks(res.Names)
	if len(names) == 0 {
		// An entry with no tokens is never persisted.
		return Result{}, ErrNoNames
	}

	err := s.db.UpdateNamelist(school, department, func(current *string) (string, error) {
		stored := ""
		if current != nil {
			stored = *current
		}
		return namelist.Merge(stored, degree, names, res.HasNames, s.cfg.LegacyTrackKey)
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Degree: degree, Count: len(names), HasNames: res.HasNames}, nil
}

type Validation struct {
	Outcome      internal.ValidationOutcome
	MatchedToken string
}

// Validate answers whether name appears in the stored namelist for one
// degree track. When the track exists but carries no real names
// (admission numbers only), the outcome is cannot_validate: successful
// but inconclusive.
func (s *Service) Validate(school, department, degree, name string) (Validation, error) {
	if err := requireIdentifiers(school, department, degree); err != nil {
		return Validation{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Validation{}, fmt.Errorf("%w: name", ErrMissingIdentifier)
	}

	stored, err := s.db.GetNamelist(school, department)
	if err != nil {
		return Validation{}, err
	}
	if stored == nil || strings.TrimSpace(*stored) == "" {
		return Validation{Outcome: internal.ValidationInvalid}, nil
	}

	entry, ok := namelist.Lookup(*stored, degree, s.cfg.LegacyTrackKey)
	if !ok || strings.TrimSpace(entry.Names) == "" {
		return Validation{Outcome: internal.ValidationInvalid}, nil
	}
	if !entry.HasNames {
		return Validation{Outcome: internal.ValidationCannotValidate}, nil
	}

	matched, token := namelist.Match(name, entry.Names)
	if !matched {
		return Validation{Outcome: internal.ValidationInvalid}, nil
	}
	return Validation{Outcome: internal.ValidationValid, MatchedToken: token}, nil
}

// CheckNamelist reports whether a department has any stored namelist.
func (s *Service) CheckNamelist(school, department string) (bool, string, error) {
	if strings.TrimSpace(school) == "" || strings.TrimSpace(department) == "" {
		return false, "", fmt.Errorf("%w: school and department", ErrMissingIdentifier)
	}

	stored, err := s.db.GetNamelist(school, department)
	if err != nil {
		return false, "", err
	}
	if stored == nil || strings.TrimSpace(*stored) == "" {
		return false, "", nil
	}
	return true, *stored, nil
}

// Stats combines choice aggregates with the stored namelist size for
// one department/degree.
func (s *Service) Stats(userID int, school, department, degree string) (internal.DepartmentStats, error) {
	if err := requireIdentifiers(school, department, degree); err != nil {
		return internal.DepartmentStats{}, err
	}

	stats, err := s.db.ChoiceStats(userID, school, department, degree)
	if err != nil {
		return internal.DepartmentStats{}, err
	}

	stored, err := s.db.GetNamelist(school, department)
	if err != nil {
		return internal.DepartmentStats{}, err
	}
	if stored != nil {
		if entry, ok := namelist.Lookup(*stored, degree, s.cfg.LegacyTrackKey); ok {
			stats.NamelistCount = len(namelist.SplitNames(entry.Names))
		}
	}

	return stats, nil
}

// ExportNamelist writes a department's aggregate namelist to an xlsx
// workbook, one row per degree track.
func (s *Service) ExportNamelist(school, department, outputPath string) (int, error) {
	has, stored, err := s.CheckNamelist(school, department)
	if err != nil {
		return 0, err
	}
	if !has {
		return 0, fmt.Errorf("no namelist stored for %s %s", school, department)
	}

	tracks := namelist.Decode(stored, s.cfg.LegacyTrackKey)
	rows := exportRows(tracks)
	if err := writeExportXLSX(rows, outputPath); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func requireIdentifiers(school, department, degree string) error {
	if strings.TrimSpace(school) == "" || strings.TrimSpace(department) == "" || strings.TrimSpace(degree) == "" {
		return fmt.Errorf("%w: school, department and degree", ErrMissingIdentifier)
	}
	return nil
}

// targetKey is the identifier the backend is asked about. Callers must
// build it consistently: it also acts as the dedupe key for retried
// requests.
func targetKey(school, department, degree string) string {
	return school + department + degree
}
