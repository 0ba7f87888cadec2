package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/24digi/authcore/profile"
)

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestProfileWizardFlow(t *testing.T) {
	engine, gw := newTestEngine(t, testConfig())
	ctx := context.Background()

	login := loginTestUser(t, engine, gw, "+971501234567")
	userID := login.UserID

	// Step 1: basics.
	view, err := engine.UpdateProfile(ctx, userID, profile.Update{
		Name:        strPtr("Lina"),
		DateOfBirth: strPtr("1990-06-15"),
		Gender:      strPtr("female"),
	})
	if err != nil {
		t.Fatalf("step 1 failed: %v", err)
	}
	if view.Name != "Lina" || view.Gender != "female" {
		t.Fatalf("unexpected view after step 1: %+v", view)
	}

	// Step 2: body metrics. Earlier fields survive the sparse update.
	view, err = engine.UpdateProfile(ctx, userID, profile.Update{
		HeightCm: floatPtr(170),
		WeightKg: floatPtr(65),
	})
	if err != nil {
		t.Fatalf("step 2 failed: %v", err)
	}
	if view.Name != "Lina" {
		t.Fatal("sparse update must not clobber earlier fields")
	}
	if view.BMI != 22.5 {
		t.Fatalf("expected BMI 22.5, got %v", view.BMI)
	}

	// Step 3: lifestyle and goal.
	view, err = engine.UpdateProfile(ctx, userID, profile.Update{
		ActivityLevel:   strPtr("moderately_active"),
		WorkoutsPerWeek: intPtr(3),
		Goal:            strPtr("lose_weight"),
		TargetWeightKg:  floatPtr(60),
		DietPreference:  strPtr("vegetarian"),
		MealsPerDay:     intPtr(3),
		Allergies:       &[]string{"nuts"},
	})
	if err != nil {
		t.Fatalf("step 3 failed: %v", err)
	}
	if view.Complete {
		t.Fatal("profile must stay incomplete until the finish step")
	}

	// Finish without consent is rejected.
	if _, err := engine.FinishProfile(ctx, userID); !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}

	if _, err := engine.UpdateProfile(ctx, userID, profile.Update{
		ConsentTerms:      boolPtr(true),
		ConsentPrivacy:    boolPtr(true),
		ConsentHealthData: boolPtr(true),
	}); err != nil {
		t.Fatalf("consent step failed: %v", err)
	}

	view, err = engine.FinishProfile(ctx, userID)
	if err != nil {
		t.Fatalf("FinishProfile failed: %v", err)
	}
	if !view.Complete {
		t.Fatal("expected completed profile")
	}

	// Finishing again is a no-op.
	if _, err := engine.FinishProfile(ctx, userID); err != nil {
		t.Fatalf("second FinishProfile failed: %v", err)
	}

	// The next login reports the completed profile.
	again := loginTestUser(t, engine, gw, "+971501234567")
	if !again.ProfileComplete {
		t.Fatal("login after finish must report ProfileComplete")
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	engine, gw := newTestEngine(t, testConfig())
	ctx := context.Background()

	login := loginTestUser(t, engine, gw, "+971501234567")

	cases := []struct {
		name string
		upd  profile.Update
	}{
		{"empty name", profile.Update{Name: strPtr("   ")}},
		{"bad dob format", profile.Update{DateOfBirth: strPtr("15/06/1990")}},
		{"too young", profile.Update{DateOfBirth: strPtr(time.Now().AddDate(-5, 0, 0).Format("2006-01-02"))}},
		{"unknown gender", profile.Update{Gender: strPtr("attack-helicopter")}},
		{"height out of range", profile.Update{HeightCm: floatPtr(10)}},
		{"weight out of range", profile.Update{WeightKg: floatPtr(1000)}},
		{"meals out of range", profile.Update{MealsPerDay: intPtr(0)}},
		{"unknown activity", profile.Update{ActivityLevel: strPtr("sometimes")}},
		{"unknown goal", profile.Update{Goal: strPtr("world_domination")}},
		{"unknown diet", profile.Update{DietPreference: strPtr("carnivore")}},
		{"unknown allergy", profile.Update{Allergies: &[]string{"kryptonite"}}},
		{"unknown timezone", profile.Update{Timezone: strPtr("Mars/Olympus_Mons")}},
	}

	for _, tc := range cases {
		if _, err := engine.UpdateProfile(ctx, login.UserID, tc.upd); !errors.Is(err, ErrProfileInvalid) {
			t.Fatalf("%s: expected ErrProfileInvalid, got %v", tc.name, err)
		}
	}

	// A failed update leaves the stored profile untouched.
	view, err := engine.Profile(ctx, login.UserID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if view.Name != "" || view.Gender != "" {
		t.Fatalf("rejected updates must not persist, got %+v", view)
	}
}

func TestFinishProfileIncomplete(t *testing.T) {
	engine, gw := newTestEngine(t, testConfig())
	ctx := context.Background()

	login := loginTestUser(t, engine, gw, "+971501234567")

	// All consents, but the wizard fields are missing.
	if _, err := engine.UpdateProfile(ctx, login.UserID, profile.Update{
		ConsentTerms:      boolPtr(true),
		ConsentPrivacy:    boolPtr(true),
		ConsentHealthData: boolPtr(true),
	}); err != nil {
		t.Fatalf("consent update failed: %v", err)
	}

	if _, err := engine.FinishProfile(ctx, login.UserID); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("expected ErrProfileIncomplete, got %v", err)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := engine.Profile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := engine.Profile(ctx, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty ID, got %v", err)
	}
	if _, err := engine.UpdateProfile(ctx, "missing", profile.Update{Name: strPtr("x")}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on update, got %v", err)
	}
	if _, err := engine.FinishProfile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on finish, got %v", err)
	}
}

func TestProfileDerivedAge(t *testing.T) {
	engine, gw := newTestEngine(t, testConfig())
	ctx := context.Background()

	login := loginTestUser(t, engine, gw, "+971501234567")

	if _, err := engine.UpdateProfile(ctx, login.UserID, profile.Update{
		DateOfBirth: strPtr("1990-06-15"),
	}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	engine.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	view, err := engine.Profile(ctx, login.UserID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if view.Age != 35 {
		t.Fatalf("expected age 35 before the birthday, got %d", view.Age)
	}

	engine.now = func() time.Time { return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) }
	view, err = engine.Profile(ctx, login.UserID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if view.Age != 36 {
		t.Fatalf("expected age 36 after the birthday, got %d", view.Age)
	}
}
