// Package recommend suggests a medical specialty from free-text symptoms.
package recommend

import (
	"context"
	"errors"
	"strings"
)

const (
	MethodRuleBased = "rule-based"
	MethodOpenAI    = "openai"

	GeneralPhysician = "General Physician"
)

// Specialties is the allow-list an external classifier must answer from.
var Specialties = []string{
	"Cardiologist",
	"Dermatologist",
	"Neurologist",
	GeneralPhysician,
	"Orthopedist",
	"Gastroenterologist",
	"Ophthalmologist",
	"ENT Specialist",
}

// ErrUnrecognised is returned when a classifier answers outside Specialties.
var ErrUnrecognised = errors.New("recommend: specialty not in allow-list")

// Classifier maps symptoms to one of Specialties.
type Classifier interface {
	Classify(ctx context.Context, symptoms string) (string, error)
}

func allowed(specialty string) bool {
	for _, s := range Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

type keywordRule struct {
	specialty string
	keywords  []string
}

// First match wins.
var keywordRules = []keywordRule{
	{"Cardiologist", []string{"heart", "chest pain", "bp", "blood pressure", "cardiac"}},
	{"Dermatologist", []string{"skin", "rash", "itch", "allergy", "dermatitis", "acne"}},
	{"Neurologist", []string{"headache", "seizure", "stroke", "numbness", "migraine", "neurological"}},
}

// RuleBased classifies by case-insensitive substring match and falls back to
// a general physician.
func RuleBased(symptoms string) string {
	s := strings.ToLower(symptoms)
	for _, r := range keywordRules {
		for _, kw := range r.keywords {
			if strings.Contains(s, kw) {
				return r.specialty
			}
		}
	}
	return GeneralPhysician
}
