package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caregate/caregate/adapters/clock"
	"github.com/caregate/caregate/adapters/memory"
	"github.com/caregate/caregate/domain/profile"
)

func newProfileService() *ProfileService {
	clk := clock.NewFake(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	return NewProfileService(memory.NewProfileStore(), clk, zerolog.Nop())
}

func TestProfile_GetAbsentReturnsEmpty(t *testing.T) {
	svc := newProfileService()

	p, err := svc.Get(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.AccountID != "acc-1" {
		t.Errorf("account id = %q", p.AccountID)
	}
	if len(p.Conditions) != 0 || p.Notes != "" {
		t.Error("expected an empty profile")
	}
}

func TestProfile_PutRoundTrip(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	in := profile.Profile{
		AccountID:   "acc-1",
		DateOfBirth: time.Date(1985, time.June, 2, 0, 0, 0, 0, time.UTC),
		Sex:         profile.SexFemale,
		HeightCm:    168,
		WeightKg:    61,
		Conditions:  []string{"asthma"},
		Medications: []string{"salbutamol"},
	}
	if err := svc.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := svc.Get(ctx, "acc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sex != profile.SexFemale || got.HeightCm != 168 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestProfile_PutRejectsInvalid(t *testing.T) {
	svc := newProfileService()
	ctx := context.Background()

	cases := []struct {
		name string
		p    profile.Profile
	}{
		{"future birth date", profile.Profile{AccountID: "acc-1",
			DateOfBirth: time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)}},
		{"unknown sex", profile.Profile{AccountID: "acc-1", Sex: "x"}},
		{"notes too long", profile.Profile{AccountID: "acc-1",
			Notes: strings.Repeat("x", profile.MaxNotesLength+1)}},
		{"blank condition", profile.Profile{AccountID: "acc-1", Conditions: []string{"  "}}},
	}
	for _, tc := range cases {
		if err := svc.Put(ctx, tc.p); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
