package profile

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func validProfile() Profile {
	return Profile{
		AccountID:   "acc-1",
		DateOfBirth: time.Date(1985, time.April, 12, 0, 0, 0, 0, time.UTC),
		Sex:         SexFemale,
		HeightCm:    168,
		WeightKg:    62,
		Conditions:  []string{"asthma"},
		Medications: []string{"salbutamol"},
		Allergies:   []string{"penicillin"},
		Notes:       "mild exercise-induced symptoms",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validProfile(), testNow); err != nil {
		t.Errorf("expected valid profile, got %v", err)
	}
	if err := Validate(Profile{AccountID: "acc-2"}, testNow); err != nil {
		t.Errorf("expected empty profile to validate, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"future dob", func(p *Profile) { p.DateOfBirth = testNow.AddDate(1, 0, 0) }},
		{"ancient dob", func(p *Profile) { p.DateOfBirth = testNow.AddDate(-200, 0, 0) }},
		{"bad sex", func(p *Profile) { p.Sex = "banana" }},
		{"negative height", func(p *Profile) { p.HeightCm = -1 }},
		{"huge weight", func(p *Profile) { p.WeightKg = 900 }},
		{"blank condition", func(p *Profile) { p.Conditions = []string{"  "} }},
		{"long entry", func(p *Profile) { p.Allergies = []string{strings.Repeat("x", MaxEntryLength+1)} }},
		{"long notes", func(p *Profile) { p.Notes = strings.Repeat("n", MaxNotesLength+1) }},
	}

	for _, tc := range cases {
		p := validProfile()
		tc.mutate(&p)
		if err := Validate(p, testNow); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestContextSummary(t *testing.T) {
	got := ContextSummary(validProfile(), testNow)

	for _, want := range []string{"Age: 39", "Sex: female", "Conditions: asthma", "Allergies: penicillin"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, got)
		}
	}
}

func TestContextSummary_EmptyProfile(t *testing.T) {
	if got := ContextSummary(Profile{}, testNow); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
}
