// Package profile provides medical profile value types and pure
// validation. The profile is patient-entered context handed to the
// assistant; nothing here diagnoses or interprets.
package profile

import (
	"fmt"
	"strings"
	"time"
)

// Sex is the patient-reported sex used for assistant context.
type Sex string

const (
	SexUnspecified Sex = ""
	SexFemale      Sex = "female"
	SexMale        Sex = "male"
	SexOther       Sex = "other"
)

// Profile represents a patient's medical profile (value type).
type Profile struct {
	AccountID   string
	DateOfBirth time.Time
	Sex         Sex
	HeightCm    int
	WeightKg    int
	Conditions  []string
	Medications []string
	Allergies   []string
	Notes       string
	UpdatedAt   time.Time
}

// Field size limits. Free-text fields are forwarded to the assistant
// service, so they are bounded here rather than at the transport.
const (
	MaxListEntries     = 50
	MaxEntryLength     = 200
	MaxNotesLength     = 2000
	MaxPatientAgeYears = 130
)

// Validate checks a profile for structural problems.
// This is a PURE function (now is passed in for age checks).
func Validate(p Profile, now time.Time) error {
	if !p.DateOfBirth.IsZero() {
		if p.DateOfBirth.After(now) {
			return fmt.Errorf("date of birth is in the future")
		}
		if now.Sub(p.DateOfBirth) > time.Duration(MaxPatientAgeYears)*365*24*time.Hour {
			return fmt.Errorf("date of birth is more than %d years ago", MaxPatientAgeYears)
		}
	}

	switch p.Sex {
	case SexUnspecified, SexFemale, SexMale, SexOther:
	default:
		return fmt.Errorf("unknown sex %q", p.Sex)
	}

	if p.HeightCm < 0 || p.HeightCm > 300 {
		return fmt.Errorf("height %d out of range", p.HeightCm)
	}
	if p.WeightKg < 0 || p.WeightKg > 700 {
		return fmt.Errorf("weight %d out of range", p.WeightKg)
	}

	for name, list := range map[string][]string{
		"conditions":  p.Conditions,
		"medications": p.Medications,
		"allergies":   p.Allergies,
	} {
		if len(list) > MaxListEntries {
			return fmt.Errorf("%s: too many entries (%d > %d)", name, len(list), MaxListEntries)
		}
		for _, entry := range list {
			if strings.TrimSpace(entry) == "" {
				return fmt.Errorf("%s: blank entry", name)
			}
			if len(entry) > MaxEntryLength {
				return fmt.Errorf("%s: entry too long (%d > %d)", name, len(entry), MaxEntryLength)
			}
		}
	}

	if len(p.Notes) > MaxNotesLength {
		return fmt.Errorf("notes too long (%d > %d)", len(p.Notes), MaxNotesLength)
	}

	return nil
}

// ContextSummary renders the profile as plain text for the assistant
// prompt context. Empty fields are omitted.
// This is a PURE function.
func ContextSummary(p Profile, now time.Time) string {
	var b strings.Builder

	if !p.DateOfBirth.IsZero() {
		years := int(now.Sub(p.DateOfBirth).Hours() / 24 / 365.25)
		fmt.Fprintf(&b, "Age: %d\n", years)
	}
	if p.Sex != SexUnspecified {
		fmt.Fprintf(&b, "Sex: %s\n", p.Sex)
	}
	if p.HeightCm > 0 {
		fmt.Fprintf(&b, "Height: %d cm\n", p.HeightCm)
	}
	if p.WeightKg > 0 {
		fmt.Fprintf(&b, "Weight: %d kg\n", p.WeightKg)
	}
	writeList(&b, "Conditions", p.Conditions)
	writeList(&b, "Medications", p.Medications)
	writeList(&b, "Allergies", p.Allergies)
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", p.Notes)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, label string, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(entries, ", "))
}
