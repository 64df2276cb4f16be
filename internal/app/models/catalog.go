package models

import (
	"fmt"
	"strings"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" db:"longitude"`
}

// City is a top-level geographic grouping of places and routes.
type City struct {
	ID              string      `json:"id" yaml:"id" db:"id"`
	Code            string      `json:"code" yaml:"code" db:"code"`
	Name            string      `json:"name" yaml:"name" db:"name"`
	Slug            string      `json:"slug" yaml:"slug" db:"slug"`
	Description     string      `json:"description" yaml:"description" db:"description"`
	HeroImage       string      `json:"hero_image" yaml:"hero_image" db:"hero_image"`
	HighlightTags   []string    `json:"highlight_tags" yaml:"highlight_tags" db:"highlight_tags"`
	SignatureDishes []string    `json:"signature_dishes" yaml:"signature_dishes" db:"signature_dishes"`
	Coordinates     Coordinates `json:"coordinates" yaml:"coordinates"`
	Region          string      `json:"region,omitempty" yaml:"region" db:"region"`
}

// District belongs to exactly one city.
type District struct {
	ID     string `json:"id" yaml:"id" db:"id"`
	CityID string `json:"city_id" yaml:"city_id" db:"city_id"`
	Name   string `json:"name" yaml:"name" db:"name"`
	Code   string `json:"code" yaml:"code" db:"code"`
}

// PriceLevel is an ordinal price tier.
type PriceLevel string

const (
	PriceLevelUnknown PriceLevel = ""
	PriceLevelLow     PriceLevel = "tier1"
	PriceLevelMedium  PriceLevel = "tier2"
	PriceLevelHigh    PriceLevel = "tier3"
)

var priceGlyphs = map[PriceLevel]string{
	PriceLevelLow:    "₺",
	PriceLevelMedium: "₺₺",
	PriceLevelHigh:   "₺₺₺",
}

// Glyph renders the tier with currency symbols.
func (p PriceLevel) Glyph() string {
	return priceGlyphs[p]
}

// ParsePriceLevel accepts either the tier name or its glyph form.
func ParsePriceLevel(s string) (PriceLevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceLevelUnknown, nil
	}
	for level, glyph := range priceGlyphs {
		if s == string(level) || s == glyph {
			return level, nil
		}
	}
	return PriceLevelUnknown, fmt.Errorf("%w: unknown price level %q", ErrValidation, s)
}

// Place is a venue in a city, optionally in a district.
type Place struct {
	ID               string      `json:"id" yaml:"id" db:"id"`
	CityID           string      `json:"city_id" yaml:"city_id" db:"city_id"`
	DistrictID       *string     `json:"district_id,omitempty" yaml:"district_id" db:"district_id"`
	Name             string      `json:"name" yaml:"name" db:"name"`
	Summary          string      `json:"summary" yaml:"summary" db:"summary"`
	Specialties      []string    `json:"specialties" yaml:"specialties" db:"specialties"`
	SpeedScore       float64     `json:"speed_score" yaml:"speed_score" db:"speed_score"`
	CleanlinessScore float64     `json:"cleanliness_score" yaml:"cleanliness_score" db:"cleanliness_score"`
	ValueScore       float64     `json:"value_score" yaml:"value_score" db:"value_score"`
	PriceLevel       PriceLevel  `json:"price_level" yaml:"price_level" db:"price_level"`
	HeroImage        string      `json:"hero_image" yaml:"hero_image" db:"hero_image"`
	Coordinates      Coordinates `json:"coordinates" yaml:"coordinates"`
}
