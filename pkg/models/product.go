package models

import (
	"strings"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

// ProductType identifies one of the structured product archetypes
type ProductType string

const (
	ProductReverseConvertible ProductType = "reverse_convertible"
	ProductAutocall           ProductType = "autocall"
	ProductCapitalProtected   ProductType = "capital_protected"
	ProductWarrant            ProductType = "warrant"
)

// ProductTypes lists every supported product in display order
var ProductTypes = []ProductType{
	ProductReverseConvertible,
	ProductAutocall,
	ProductCapitalProtected,
	ProductWarrant,
}

// WarrantType is the option side a warrant is written on
type WarrantType string

const (
	WarrantCall WarrantType = "call"
	WarrantPut  WarrantType = "put"
)

// ParseWarrantType accepts "call" or "put" in any case. Empty means call.
func ParseWarrantType(s string) (WarrantType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "call":
		return WarrantCall, nil
	case "put":
		return WarrantPut, nil
	default:
		return "", errors.InvalidParameter("warrant_type must be call or put, got %q", s)
	}
}

// DefaultAutocallFrequency is a quarterly observation schedule, in years
const DefaultAutocallFrequency = 0.25

// DefaultWarrantLeverage applies when a warrant request omits leverage
const DefaultWarrantLeverage = 5.0

// ReverseConvertibleTerms describes a reverse convertible note.
// CouponRate and BarrierLevel are percentages.
type ReverseConvertibleTerms struct {
	Principal     float64 `json:"principal"`
	CouponRate    float64 `json:"coupon_rate"`
	BarrierLevel  float64 `json:"barrier_level"`
	MaturityYears float64 `json:"maturity_years"`
}

// Validate checks the terms
func (t ReverseConvertibleTerms) Validate() error {
	if err := validatePrincipal(t.Principal); err != nil {
		return err
	}
	if err := validateMaturity(t.MaturityYears); err != nil {
		return err
	}
	if err := validatePercent("coupon_rate", t.CouponRate, false); err != nil {
		return err
	}
	return validatePercent("barrier_level", t.BarrierLevel, true)
}

// AutocallTerms describes an autocall / Phoenix note.
// AutocallBarrier, CouponRate and BarrierLevel are percentages.
type AutocallTerms struct {
	Principal         float64 `json:"principal"`
	AutocallBarrier   float64 `json:"autocall_barrier"`
	CouponRate        float64 `json:"coupon_rate"`
	BarrierLevel      float64 `json:"barrier_level"`
	MaturityYears     float64 `json:"maturity_years"`
	AutocallFrequency float64 `json:"autocall_frequency"`
}

// Validate checks the terms
func (t AutocallTerms) Validate() error {
	if err := validatePrincipal(t.Principal); err != nil {
		return err
	}
	if err := validateMaturity(t.MaturityYears); err != nil {
		return err
	}
	if err := validatePercent("autocall_barrier", t.AutocallBarrier, true); err != nil {
		return err
	}
	if err := validatePercent("coupon_rate", t.CouponRate, false); err != nil {
		return err
	}
	if err := validatePercent("barrier_level", t.BarrierLevel, true); err != nil {
		return err
	}
	if !isFinite(t.AutocallFrequency) || t.AutocallFrequency <= 0 {
		return errors.InvalidParameter("autocall_frequency must be positive, got %v", t.AutocallFrequency)
	}
	return nil
}

// CapitalProtectedTerms describes a capital protected note.
// ProtectionLevel and ParticipationRate are percentages.
type CapitalProtectedTerms struct {
	Principal         float64 `json:"principal"`
	ProtectionLevel   float64 `json:"protection_level"`
	ParticipationRate float64 `json:"participation_rate"`
	MaturityYears     float64 `json:"maturity_years"`
}

// Validate checks the terms
func (t CapitalProtectedTerms) Validate() error {
	if err := validatePrincipal(t.Principal); err != nil {
		return err
	}
	if err := validateMaturity(t.MaturityYears); err != nil {
		return err
	}
	if err := validatePercent("protection_level", t.ProtectionLevel, false); err != nil {
		return err
	}
	return validatePercent("participation_rate", t.ParticipationRate, false)
}

// WarrantTerms describes a leveraged warrant. StrikePrice is absolute.
// A zero Principal prices a fixed number of units instead of a fixed amount.
type WarrantTerms struct {
	StrikePrice   float64     `json:"strike_price"`
	WarrantType   WarrantType `json:"warrant_type"`
	Leverage      float64     `json:"leverage"`
	MaturityYears float64     `json:"maturity_years"`
	Principal     float64     `json:"principal,omitempty"`
}

// Validate checks the terms
func (t WarrantTerms) Validate() error {
	if !isFinite(t.StrikePrice) || t.StrikePrice <= 0 {
		return errors.InvalidParameter("strike_price must be positive, got %v", t.StrikePrice)
	}
	if t.WarrantType != WarrantCall && t.WarrantType != WarrantPut {
		return errors.InvalidParameter("warrant_type must be call or put, got %q", t.WarrantType)
	}
	if !isFinite(t.Leverage) || t.Leverage <= 0 {
		return errors.InvalidParameter("leverage must be positive, got %v", t.Leverage)
	}
	if err := validateMaturity(t.MaturityYears); err != nil {
		return err
	}
	if !isFinite(t.Principal) || t.Principal < 0 {
		return errors.InvalidParameter("principal must be non-negative, got %v", t.Principal)
	}
	return nil
}

func validatePrincipal(p float64) error {
	if !isFinite(p) || p <= 0 {
		return errors.InvalidParameter("principal must be positive, got %v", p)
	}
	return nil
}

// A zero maturity is valued at expiry; only negative maturities are rejected.
func validateMaturity(t float64) error {
	if !isFinite(t) || t < 0 {
		return errors.InvalidParameter("maturity_years must be non-negative, got %v", t)
	}
	return nil
}

func validatePercent(name string, v float64, strictlyPositive bool) error {
	if !isFinite(v) || v < 0 || (strictlyPositive && v == 0) {
		return errors.InvalidParameter("%s out of range, got %v", name, v)
	}
	return nil
}
