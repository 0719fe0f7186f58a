package model

import (
	"fmt"
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentH1B      DocumentType = "h1b"
	DocumentF1       DocumentType = "f1"
	DocumentOPT      DocumentType = "opt"
	DocumentSTEMOPT  DocumentType = "stemopt"
	DocumentVisa     DocumentType = "visa"
	DocumentI94      DocumentType = "i94"
	DocumentPassport DocumentType = "passport"
	DocumentEAD      DocumentType = "ead"
	DocumentDL       DocumentType = "dl"
	DocumentI140     DocumentType = "i140"
	DocumentI485     DocumentType = "i485"
	DocumentOther    DocumentType = "other"
)

var documentLabels = map[DocumentType]string{
	DocumentH1B:      "H1B",
	DocumentF1:       "F1",
	DocumentOPT:      "OPT",
	DocumentSTEMOPT:  "STEM OPT",
	DocumentVisa:     "Visa Stamping",
	DocumentI94:      "I-94",
	DocumentPassport: "Passport",
	DocumentEAD:      "EAD/AP",
	DocumentDL:       "Driver's License",
	DocumentI140:     "I-140",
	DocumentI485:     "I-485",
	DocumentOther:    "Other",
}

// DocumentTypes lists the closed set in form order.
var DocumentTypes = []DocumentType{
	DocumentH1B, DocumentF1, DocumentOPT, DocumentSTEMOPT, DocumentVisa, DocumentI94,
	DocumentPassport, DocumentEAD, DocumentDL, DocumentI140, DocumentI485, DocumentOther,
}

func (t DocumentType) IsValid() bool {
	_, ok := documentLabels[t]
	return ok
}

// Label falls back to the raw tag for unknown types.
func (t DocumentType) Label() string {
	if l, ok := documentLabels[t]; ok {
		return l
	}
	return string(t)
}

type PersonCategory string

const (
	PersonSelf   PersonCategory = "self"
	PersonSpouse PersonCategory = "spouse"
	PersonChild  PersonCategory = "child"
	PersonParent PersonCategory = "parent"
)

var PersonCategories = []PersonCategory{PersonSelf, PersonSpouse, PersonChild, PersonParent}

func (p PersonCategory) IsValid() bool {
	switch p {
	case PersonSelf, PersonSpouse, PersonChild, PersonParent:
		return true
	default:
		return false
	}
}

func (p PersonCategory) Label() string {
	switch p {
	case PersonSelf:
		return "Self"
	case PersonSpouse:
		return "Spouse"
	case PersonChild:
		return "Child"
	case PersonParent:
		return "Parent"
	default:
		return string(p)
	}
}

// TrackedRecord is one tracked expiring document.
type TrackedRecord struct {
	ID              string         `json:"id"`
	DocumentType    DocumentType   `json:"type"`
	PersonCategory  PersonCategory `json:"person"`
	PersonName      string         `json:"personName"`
	ExpiryDate      Date           `json:"expiryDate"`
	Notes           string         `json:"notes"`
	ReminderOffsets OffsetSet      `json:"notifications"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// DisplayName prefers a non-blank PersonName over the category label.
func (r TrackedRecord) DisplayName() string {
	if name := strings.TrimSpace(r.PersonName); name != "" {
		return name
	}
	return r.PersonCategory.Label()
}

func (r TrackedRecord) Clone() TrackedRecord {
	out := r
	out.ReminderOffsets = r.ReminderOffsets.Clone()
	return out
}

// Validate checks every field except ID and CreatedAt, which the store owns.
func (r TrackedRecord) Validate(allowed OffsetSet) error {
	if strings.TrimSpace(string(r.DocumentType)) == "" {
		return &ValidationError{Field: "documentType", Reason: "is required"}
	}
	if !r.DocumentType.IsValid() {
		return &ValidationError{Field: "documentType", Reason: fmt.Sprintf("%q is not a known document type", r.DocumentType)}
	}
	if strings.TrimSpace(string(r.PersonCategory)) == "" {
		return &ValidationError{Field: "personCategory", Reason: "is required"}
	}
	if !r.PersonCategory.IsValid() {
		return &ValidationError{Field: "personCategory", Reason: fmt.Sprintf("%q is not a known person category", r.PersonCategory)}
	}
	if r.ExpiryDate.IsZero() {
		return &ValidationError{Field: "expiryDate", Reason: "is required"}
	}
	return r.ReminderOffsets.Validate(allowed)
}
