package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrUnknownSection is returned for section names a profile does not have.
var ErrUnknownSection = errors.New("unknown profile section")

// Section names accepted by editing sessions.
const (
	SectionBasics     = "basics"
	SectionSummary    = "summary"
	SectionSkills     = "skills"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionLinks      = "links"
)

// Sections lists every editable section in display order.
var Sections = []string{SectionBasics, SectionSummary, SectionSkills, SectionExperience, SectionEducation, SectionLinks}

// Metadata holds versioning info for optimistic locking.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// ProfileDocument represents the persisted JSON structure.
type ProfileDocument struct {
	Metadata Metadata  `json:"metadata"`
	Profiles []Profile `json:"profiles" validate:"dive"`
}

// Profile is one user's resume profile.
type Profile struct {
	ID         string       `json:"id" validate:"required"`
	Basics     Basics       `json:"basics"`
	Summary    string       `json:"summary" validate:"max=4000"`
	Skills     []string     `json:"skills" validate:"dive,required,max=80"`
	Experience []Experience `json:"experience" validate:"dive"`
	Education  []Education  `json:"education" validate:"dive"`
	Links      []Link       `json:"links" validate:"dive"`
	UpdatedAt  int64        `json:"updatedAt"`
}

// Basics holds the profile header.
type Basics struct {
	FullName string `json:"fullName" validate:"required"`
	Headline string `json:"headline"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Experience is one job entry.
type Experience struct {
	Company   string   `json:"company" validate:"required"`
	Title     string   `json:"title" validate:"required"`
	StartDate string   `json:"startDate" validate:"omitempty,datetime=2006-01"`
	EndDate   string   `json:"endDate" validate:"omitempty,datetime=2006-01"`
	Current   *bool    `json:"current"`
	Bullets   []string `json:"bullets"`
}

// Education is one school entry.
type Education struct {
	School  string `json:"school" validate:"required"`
	Degree  string `json:"degree"`
	Field   string `json:"field"`
	EndYear int    `json:"endYear" validate:"omitempty,min=1900,max=2100"`
}

// Link is a labelled external URL.
type Link struct {
	Label string `json:"label" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

// ApplyDefaults sets fallback values after decode.
func (d *ProfileDocument) ApplyDefaults() {
	if d.Profiles == nil {
		d.Profiles = []Profile{}
	}
	for pi := range d.Profiles {
		d.Profiles[pi].ApplyDefaults()
	}
}

// ApplyDefaults replaces nil collections with empty ones.
func (p *Profile) ApplyDefaults() {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.Links == nil {
		p.Links = []Link{}
	}
	for ei := range p.Experience {
		p.Experience[ei].applyDefaults()
	}
}

func (e *Experience) applyDefaults() {
	if e.Current == nil {
		v := false
		e.Current = &v
	}
	if e.Bullets == nil {
		e.Bullets = []string{}
	}
}

// IsSection reports whether name is an editable section.
func IsSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

// SectionValue returns the named section encoded as JSON.
func (p *Profile) SectionValue(section string) (json.RawMessage, error) {
	var v any
	switch section {
	case SectionBasics:
		v = p.Basics
	case SectionSummary:
		v = p.Summary
	case SectionSkills:
		v = p.Skills
	case SectionExperience:
		v = p.Experience
	case SectionEducation:
		v = p.Education
	case SectionLinks:
		v = p.Links
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	return json.Marshal(v)
}

// SetSection decodes payload into the named section, replacing it wholesale.
// The profile is left untouched when decoding fails.
func (p *Profile) SetSection(section string, payload json.RawMessage) error {
	next := *p
	var err error
	switch section {
	case SectionBasics:
		var b Basics
		err = json.Unmarshal(payload, &b)
		next.Basics = b
	case SectionSummary:
		var s string
		err = json.Unmarshal(payload, &s)
		next.Summary = s
	case SectionSkills:
		var s []string
		err = json.Unmarshal(payload, &s)
		next.Skills = s
	case SectionExperience:
		var e []Experience
		err = json.Unmarshal(payload, &e)
		next.Experience = e
	case SectionEducation:
		var e []Education
		err = json.Unmarshal(payload, &e)
		next.Education = e
	case SectionLinks:
		var l []Link
		err = json.Unmarshal(payload, &l)
		next.Links = l
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
	if err != nil {
		return fmt.Errorf("decode %s section: %w", section, err)
	}
	next.ApplyDefaults()
	*p = next
	return nil
}

// AreProfileDocumentsEqual compares two documents ignoring Metadata.
// Uses JSON serialization for flexible comparison (order-independent for object keys).
func AreProfileDocumentsEqual(a, b *ProfileDocument) bool {
	if a == nil || b == nil {
		return a == b
	}

	aBytes, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bBytes, err := json.Marshal(b)
	if err != nil {
		return false
	}

	var aMap, bMap map[string]interface{}
	if err := json.Unmarshal(aBytes, &aMap); err != nil {
		return false
	}
	if err := json.Unmarshal(bBytes, &bMap); err != nil {
		return false
	}

	delete(aMap, "metadata")
	delete(bMap, "metadata")

	return reflect.DeepEqual(aMap, bMap)
}
