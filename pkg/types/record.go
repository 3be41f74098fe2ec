// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RecordStatus is the lifecycle state of a literature record. A record is
// created active, soft-deleted to deleted, and physically removed on purge
// (removal is not a stored state).
type RecordStatus string

const (
	StatusActive  RecordStatus = "active"
	StatusDeleted RecordStatus = "deleted"
)

// LiteratureType classifies a record by publication kind.
type LiteratureType string

const (
	TypeJournal    LiteratureType = "journal"
	TypeThesis     LiteratureType = "thesis"
	TypeConference LiteratureType = "conference"
	TypeBook       LiteratureType = "book"
	TypeNewspaper  LiteratureType = "newspaper"
	TypeReport     LiteratureType = "report"
	TypePatent     LiteratureType = "patent"
	TypeStandard   LiteratureType = "standard"
	TypeYearbook   LiteratureType = "yearbook"
	TypeLaw        LiteratureType = "law"
	TypeOther      LiteratureType = "other"
)

// StudyType classifies the study design described by a record. A record
// may carry several.
type StudyType string

const (
	StudyMetaAnalysis        StudyType = "meta_analysis"
	StudyRCT                 StudyType = "rct"
	StudyNonRCT              StudyType = "non_rct"
	StudyProspectiveCohort   StudyType = "prospective_cohort"
	StudyRetrospectiveCohort StudyType = "retrospective_cohort"
	StudyCaseControl         StudyType = "case_control"
	StudyCrossSectional      StudyType = "cross_sectional"
	StudyCaseSeries          StudyType = "case_series"
	StudyNarrativeReview     StudyType = "narrative_review"
	StudySystematicReview    StudyType = "systematic_review"
	StudyScopingReview       StudyType = "scoping_review"
	StudyGuideline           StudyType = "guideline"
	StudyOther               StudyType = "other"
)

// Role is the coarse permission level of an actor. Identity is issued by
// the API layer; this core trusts it without re-validating credentials.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleResearcher Role = "researcher"
	RoleStudent    Role = "student"
)

// Actor identifies the authenticated caller of a mutating operation.
type Actor struct {
	ID   string `json:"id" yaml:"id"`
	Role Role   `json:"role" yaml:"role"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Record is one literature entry. The relational store is the sole source
// of truth for these fields; the search index mirrors a derived subset.
type Record struct {
	// ID is an opaque unique key assigned at creation.
	ID string `json:"id" yaml:"id"`

	// Title is the work's title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the work's abstract text.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Keywords are author-supplied keyword strings in source order.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Diseases are disease tags associated with the work.
	Diseases []string `json:"diseases,omitempty" yaml:"diseases,omitempty"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// AuthorUnits lists the authors' affiliations.
	AuthorUnits []string `json:"author_units,omitempty" yaml:"author_units,omitempty"`

	// FirstAuthor and CorrespondingAuthor single out the named roles.
	FirstAuthor         string `json:"first_author,omitempty" yaml:"first_author,omitempty"`
	CorrespondingAuthor string `json:"corresponding_author,omitempty" yaml:"corresponding_author,omitempty"`

	// Journal metadata.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`
	Year    int    `json:"year,omitempty" yaml:"year,omitempty"`
	Volume  string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue   string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages   string `json:"pages,omitempty" yaml:"pages,omitempty"`

	// Identifiers.
	DOI  string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// Classification.
	LiteratureType LiteratureType `json:"literature_type,omitempty" yaml:"literature_type,omitempty"`
	StudyTypes     []StudyType    `json:"study_types,omitempty" yaml:"study_types,omitempty"`

	// Source and indexing metadata.
	Source       string  `json:"source,omitempty" yaml:"source,omitempty"`
	IsSCI        bool    `json:"is_sci" yaml:"is_sci"`
	Level        string  `json:"level,omitempty" yaml:"level,omitempty"`
	CASPartition string  `json:"cas_partition,omitempty" yaml:"cas_partition,omitempty"`
	JCRPartition string  `json:"jcr_partition,omitempty" yaml:"jcr_partition,omitempty"`
	ImpactFactor float64 `json:"impact_factor,omitempty" yaml:"impact_factor,omitempty"`

	// TextAvailability is "full_text" or "abstract".
	TextAvailability string `json:"text_availability,omitempty" yaml:"text_availability,omitempty"`

	// FilePath is an opaque object-store reference. This core never reads
	// or writes the blob bytes, only the reference and its size.
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	FileSize int64  `json:"file_size,omitempty" yaml:"file_size,omitempty"`

	// Status and ownership. Ownership is immutable after creation.
	Status  RecordStatus `json:"status" yaml:"status"`
	OwnerID string       `json:"owner_id" yaml:"owner_id"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
