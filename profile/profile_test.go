package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/24digi/authcore/internal/stores"
)

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestValidateAcceptsFullUpdate(t *testing.T) {
	upd := Update{
		Name:             strPtr("Lina"),
		DateOfBirth:      strPtr("1990-06-15"),
		Gender:           strPtr("female"),
		HeightCm:         floatPtr(170),
		WeightKg:         floatPtr(65),
		HealthConditions: &[]string{"none"},
		Allergies:        &[]string{"nuts", "gluten"},
		DietPreference:   strPtr("vegetarian"),
		MealsPerDay:      intPtr(3),
		ActivityLevel:    strPtr("moderately_active"),
		WorkoutsPerWeek:  intPtr(3),
		Timezone:         strPtr("UTC"),
		Goal:             strPtr("lose_weight"),
		TargetWeightKg:   floatPtr(60),
	}
	if err := upd.Validate(); err != nil {
		t.Fatalf("full update should validate: %v", err)
	}
}

func TestValidateEmptyUpdate(t *testing.T) {
	var upd Update
	if err := upd.Validate(); err != nil {
		t.Fatalf("empty update should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		upd  Update
	}{
		{"blank name", Update{Name: strPtr("  ")}},
		{"dob wrong layout", Update{DateOfBirth: strPtr("June 15 1990")}},
		{"age below minimum", Update{DateOfBirth: strPtr(time.Now().AddDate(-10, 0, 0).Format("2006-01-02"))}},
		{"age above maximum", Update{DateOfBirth: strPtr("1850-01-01")}},
		{"unknown gender", Update{Gender: strPtr("robot")}},
		{"height too low", Update{HeightCm: floatPtr(40)}},
		{"height too high", Update{HeightCm: floatPtr(300)}},
		{"weight too low", Update{WeightKg: floatPtr(10)}},
		{"target weight too high", Update{TargetWeightKg: floatPtr(600)}},
		{"unknown condition", Update{HealthConditions: &[]string{"lycanthropy"}}},
		{"unknown allergen", Update{Allergies: &[]string{"silver"}}},
		{"unknown diet", Update{DietPreference: strPtr("breatharian")}},
		{"meals too many", Update{MealsPerDay: intPtr(9)}},
		{"unknown activity", Update{ActivityLevel: strPtr("heroic")}},
		{"workouts too many", Update{WorkoutsPerWeek: intPtr(20)}},
		{"unknown goal", Update{Goal: strPtr("fly")}},
		{"unknown timezone", Update{Timezone: strPtr("Nowhere/Void")}},
	}

	for _, tc := range cases {
		if err := tc.upd.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
	}
}

func TestFieldsEncodesPresentValuesOnly(t *testing.T) {
	now := time.Now()
	upd := Update{
		Name:     strPtr("  Lina  "),
		HeightCm: floatPtr(170.5),
	}

	fields := upd.Fields(now)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}
	if fields["name"] != "Lina" {
		t.Fatalf("expected trimmed name, got %q", fields["name"])
	}
	if fields["height"] != "170.5" {
		t.Fatalf("unexpected height encoding %q", fields["height"])
	}
	if _, ok := fields["consent_at"]; ok {
		t.Fatal("consent_at must only be stamped when a consent is granted")
	}
}

func TestFieldsStampsConsentTime(t *testing.T) {
	now := time.Now()
	upd := Update{ConsentTerms: boolPtr(true)}

	fields := upd.Fields(now)
	if fields["consent_terms"] != "1" {
		t.Fatalf("unexpected consent encoding %v", fields)
	}
	if fields["consent_at"] == "" {
		t.Fatal("granting a consent must stamp consent_at")
	}

	// Revoking a consent does not refresh the stamp.
	revoke := Update{ConsentTerms: boolPtr(false)}
	fields = revoke.Fields(now)
	if fields["consent_terms"] != "0" {
		t.Fatalf("unexpected revoke encoding %v", fields)
	}
	if _, ok := fields["consent_at"]; ok {
		t.Fatal("revoking must not stamp consent_at")
	}
}

func completeUser() *stores.User {
	h := 170.0
	w := 65.0
	return &stores.User{
		ID:            "u1",
		Name:          "Lina",
		DateOfBirth:   "1990-06-15",
		Gender:        "female",
		HeightCm:      &h,
		WeightKg:      &w,
		ActivityLevel: "moderately_active",
		Goal:          "lose_weight",
	}
}

func TestComplete(t *testing.T) {
	u := completeUser()
	if !Complete(u) {
		t.Fatal("expected complete profile")
	}

	u.Goal = ""
	if Complete(u) {
		t.Fatal("missing goal must report incomplete")
	}

	u = completeUser()
	u.HeightCm = nil
	if Complete(u) {
		t.Fatal("missing height must report incomplete")
	}
}

func TestConsented(t *testing.T) {
	u := &stores.User{ConsentTerms: true, ConsentPrivacy: true, ConsentHealthData: true}
	if !Consented(u) {
		t.Fatal("expected consented")
	}
	u.ConsentHealthData = false
	if Consented(u) {
		t.Fatal("partial consent must not count")
	}
}

func TestNewViewDerivedFields(t *testing.T) {
	u := completeUser()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	v := NewView(u, now)
	if v.Age != 35 {
		t.Fatalf("expected age 35, got %d", v.Age)
	}
	if v.BMI != 22.5 {
		t.Fatalf("expected BMI 22.5, got %v", v.BMI)
	}

	// No dob, no height: derived fields stay zero.
	bare := &stores.User{ID: "u2"}
	v = NewView(bare, now)
	if v.Age != 0 || v.BMI != 0 {
		t.Fatalf("expected zero derived fields, got age=%d bmi=%v", v.Age, v.BMI)
	}
}
