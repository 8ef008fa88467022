package customers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"scalpcare-backend/internal/shared/util"
)

// Service contains business logic for customer profiles.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Get returns the customer for a raw phone number.
func (s *Service) Get(ctx context.Context, rawPhone string) (Customer, error) {
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.Repo.GetByPhone(ctx, phone)
}

// Upsert creates or replaces the profile stored under rawPhone.
func (s *Service) Upsert(ctx context.Context, rawPhone string, p Profile) (Customer, error) {
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p = trimProfile(p)
	if err := validateProfile(p); err != nil {
		return Customer{}, err
	}
	return s.Repo.Upsert(ctx, Customer{
		Phone:              phone,
		Name:               p.Name,
		AgeRange:           p.AgeRange,
		Gender:             p.Gender,
		HasChemicalHistory: p.HasChemicalHistory,
		Lifestyle:          p.Lifestyle,
	})
}

// Lookup returns the customer if present. A missing customer is not an error.
func (s *Service) Lookup(ctx context.Context, phone string) (Customer, bool, error) {
	c, err := s.Repo.GetByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, err
	}
	return c, true, nil
}

func trimProfile(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.AgeRange = strings.TrimSpace(p.AgeRange)
	p.Gender = strings.TrimSpace(p.Gender)
	p.HasChemicalHistory = strings.TrimSpace(p.HasChemicalHistory)
	l := &p.Lifestyle
	l.WashFrequency = strings.TrimSpace(l.WashFrequency)
	l.OilOnsetTime = strings.TrimSpace(l.OilOnsetTime)
	l.Itchiness = strings.TrimSpace(l.Itchiness)
	l.Dandruff = strings.TrimSpace(l.Dandruff)
	l.HairLossPerception = strings.TrimSpace(l.HairLossPerception)
	l.StressLevel = strings.TrimSpace(l.StressLevel)
	return p
}

func validateProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"gender", p.Gender, genders},
		{"hasChemicalHistory", p.HasChemicalHistory, yesNo},
		{"lifestyle.itchiness", p.Lifestyle.Itchiness, itchinessLevels},
		{"lifestyle.dandruff", p.Lifestyle.Dandruff, dandruffLevels},
		{"lifestyle.hairLossPerception", p.Lifestyle.HairLossPerception, hairLossLevels},
		{"lifestyle.stressLevel", p.Lifestyle.StressLevel, stressLevels},
	}
	for _, c := range checks {
		if c.value != "" && !slices.Contains(c.allowed, c.value) {
			return fmt.Errorf("%w: %s must be one of %s", ErrInvalidInput, c.field, strings.Join(c.allowed, "/"))
		}
	}
	return nil
}
