// Package profile implements the onboarding wizard semantics: sparse
// updates, enum validation, the completeness rule, and the derived fields
// clients render.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/24digi/authcore/internal/stores"
)

// ErrInvalid wraps every validation failure produced by Update.Validate.
var ErrInvalid = errors.New("profile: invalid update")

const dateLayout = "2006-01-02"

var (
	genders        = set("male", "female", "other")
	activityLevels = set("sedentary", "lightly_active", "moderately_active", "very_active", "athlete")
	goals          = set("lose_weight", "maintain_weight", "gain_weight", "build_muscle")
	diets          = set("none", "vegetarian", "vegan", "pescatarian", "keto", "halal")
	conditions     = set("none", "diabetes", "hypertension", "heart_disease", "thyroid", "pcos", "other")
	allergens      = set("none", "gluten", "lactose", "nuts", "shellfish", "eggs", "soy", "other")
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// Update is one wizard step. Nil fields are absent and leave the stored
// value untouched; the zero value of a pointer target is a real update.
type Update struct {
	Name        *string
	DateOfBirth *string // YYYY-MM-DD
	Gender      *string
	HeightCm    *float64
	WeightKg    *float64

	HealthConditions *[]string
	Allergies        *[]string
	AllergyNote      *string

	DietPreference *string
	MealsPerDay    *int

	ActivityLevel   *string
	WorkoutsPerWeek *int
	Timezone        *string

	Goal           *string
	TargetWeightKg *float64

	ConsentTerms      *bool
	ConsentPrivacy    *bool
	ConsentHealthData *bool
}

// Validate checks every present field against its range or enum. The first
// violation is reported; absent fields are never checked.
func (u *Update) Validate() error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" || len(name) > 100 {
			return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalid)
		}
	}
	if u.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *u.DateOfBirth)
		if err != nil {
			return fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalid)
		}
		age := ageAt(dob, time.Now())
		if age < 13 || age > 120 {
			return fmt.Errorf("%w: age must be between 13 and 120", ErrInvalid)
		}
	}
	if u.Gender != nil {
		if _, ok := genders[*u.Gender]; !ok {
			return fmt.Errorf("%w: unknown gender %q", ErrInvalid, *u.Gender)
		}
	}
	if u.HeightCm != nil && (*u.HeightCm < 50 || *u.HeightCm > 280) {
		return fmt.Errorf("%w: height must be 50-280 cm", ErrInvalid)
	}
	if u.WeightKg != nil && (*u.WeightKg < 20 || *u.WeightKg > 500) {
		return fmt.Errorf("%w: weight must be 20-500 kg", ErrInvalid)
	}
	if u.TargetWeightKg != nil && (*u.TargetWeightKg < 20 || *u.TargetWeightKg > 500) {
		return fmt.Errorf("%w: target weight must be 20-500 kg", ErrInvalid)
	}
	if u.HealthConditions != nil {
		for _, c := range *u.HealthConditions {
			if _, ok := conditions[c]; !ok {
				return fmt.Errorf("%w: unknown health condition %q", ErrInvalid, c)
			}
		}
	}
	if u.Allergies != nil {
		for _, a := range *u.Allergies {
			if _, ok := allergens[a]; !ok {
				return fmt.Errorf("%w: unknown allergy %q", ErrInvalid, a)
			}
		}
	}
	if u.DietPreference != nil {
		if _, ok := diets[*u.DietPreference]; !ok {
			return fmt.Errorf("%w: unknown diet preference %q", ErrInvalid, *u.DietPreference)
		}
	}
	if u.MealsPerDay != nil && (*u.MealsPerDay < 1 || *u.MealsPerDay > 8) {
		return fmt.Errorf("%w: meals per day must be 1-8", ErrInvalid)
	}
	if u.ActivityLevel != nil {
		if _, ok := activityLevels[*u.ActivityLevel]; !ok {
			return fmt.Errorf("%w: unknown activity level %q", ErrInvalid, *u.ActivityLevel)
		}
	}
	if u.WorkoutsPerWeek != nil && (*u.WorkoutsPerWeek < 0 || *u.WorkoutsPerWeek > 14) {
		return fmt.Errorf("%w: workouts per week must be 0-14", ErrInvalid)
	}
	if u.Timezone != nil {
		if _, err := time.LoadLocation(*u.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalid, *u.Timezone)
		}
	}
	if u.Goal != nil {
		if _, ok := goals[*u.Goal]; !ok {
			return fmt.Errorf("%w: unknown goal %q", ErrInvalid, *u.Goal)
		}
	}
	return nil
}

// Fields converts the present fields into the flat hash representation the
// identity store persists. Setting any consent flag also stamps consent_at.
func (u *Update) Fields(now time.Time) map[string]string {
	fields := make(map[string]string)

	putStr := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	putFloat := func(key string, v *float64) {
		if v != nil {
			fields[key] = strconv.FormatFloat(*v, 'f', -1, 64)
		}
	}
	putInt := func(key string, v *int) {
		if v != nil {
			fields[key] = strconv.Itoa(*v)
		}
	}
	putList := func(key string, v *[]string) {
		if v != nil {
			fields[key] = strings.Join(*v, ",")
		}
	}
	putBool := func(key string, v *bool) {
		if v == nil {
			return
		}
		if *v {
			fields[key] = "1"
		} else {
			fields[key] = "0"
		}
	}

	putStr("name", u.Name)
	putStr("dob", u.DateOfBirth)
	putStr("gender", u.Gender)
	putFloat("height", u.HeightCm)
	putFloat("weight", u.WeightKg)
	putList("health", u.HealthConditions)
	putList("allergies", u.Allergies)
	putStr("allergy_note", u.AllergyNote)
	putStr("diet", u.DietPreference)
	putInt("meals", u.MealsPerDay)
	putStr("activity", u.ActivityLevel)
	putInt("workouts", u.WorkoutsPerWeek)
	putStr("tz", u.Timezone)
	putStr("goal", u.Goal)
	putFloat("target_weight", u.TargetWeightKg)
	putBool("consent_terms", u.ConsentTerms)
	putBool("consent_privacy", u.ConsentPrivacy)
	putBool("consent_health", u.ConsentHealthData)

	if boolTrue(u.ConsentTerms) || boolTrue(u.ConsentPrivacy) || boolTrue(u.ConsentHealthData) {
		fields["consent_at"] = strconv.FormatInt(now.UnixMilli(), 10)
	}

	return fields
}

func boolTrue(v *bool) bool {
	return v != nil && *v
}

// Complete reports whether the mandatory wizard fields are all present.
// Consents are checked separately by the finish step.
func Complete(u *stores.User) bool {
	return u.Name != "" &&
		u.DateOfBirth != "" &&
		u.Gender != "" &&
		u.HeightCm != nil &&
		u.WeightKg != nil &&
		u.ActivityLevel != "" &&
		u.Goal != ""
}

// Consented reports whether the user accepted the terms, privacy, and
// health-data processing notices.
func Consented(u *stores.User) bool {
	return u.ConsentTerms && u.ConsentPrivacy && u.ConsentHealthData
}

// View is the client-facing projection of a user record with derived
// fields filled in.
type View struct {
	UserID      string
	Method      string
	PhoneNumber string
	Email       string

	Name        string
	DateOfBirth string
	Gender      string
	HeightCm    *float64
	WeightKg    *float64
	Age         int     // 0 when date of birth is unset
	BMI         float64 // 0 when height or weight is unset

	HealthConditions []string
	Allergies        []string
	AllergyNote      string

	DietPreference string
	MealsPerDay    *int

	ActivityLevel   string
	WorkoutsPerWeek *int
	Timezone        string

	Goal           string
	TargetWeightKg *float64

	ConsentTerms      bool
	ConsentPrivacy    bool
	ConsentHealthData bool

	Complete bool
}

// NewView projects a stored user into a View, deriving age and BMI.
func NewView(u *stores.User, now time.Time) View {
	v := View{
		UserID:      u.ID,
		Method:      u.Method,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,

		Name:        u.Name,
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		HeightCm:    u.HeightCm,
		WeightKg:    u.WeightKg,

		HealthConditions: u.HealthConditions,
		Allergies:        u.Allergies,
		AllergyNote:      u.AllergyNote,

		DietPreference: u.DietPreference,
		MealsPerDay:    u.MealsPerDay,

		ActivityLevel:   u.ActivityLevel,
		WorkoutsPerWeek: u.WorkoutsPerWeek,
		Timezone:        u.Timezone,

		Goal:           u.Goal,
		TargetWeightKg: u.TargetWeightKg,

		ConsentTerms:      u.ConsentTerms,
		ConsentPrivacy:    u.ConsentPrivacy,
		ConsentHealthData: u.ConsentHealthData,

		Complete: u.ProfileComplete,
	}

	if dob, err := time.Parse(dateLayout, u.DateOfBirth); err == nil {
		v.Age = ageAt(dob, now)
	}
	if u.HeightCm != nil && u.WeightKg != nil && *u.HeightCm > 0 {
		meters := *u.HeightCm / 100
		v.BMI = math.Round(*u.WeightKg/(meters*meters)*10) / 10
	}

	return v
}

func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}
