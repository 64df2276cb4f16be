package models

// PlaceSearchOptions narrows an external place search.
type PlaceSearchOptions struct {
	Query     string  `form:"q"`
	Latitude  float64 `form:"lat"`
	Longitude float64 `form:"lng"`
	Radius    int     `form:"radius"`
	Type      string  `form:"type"`
}

// HasLocation reports whether a bias location was given.
func (o PlaceSearchOptions) HasLocation() bool {
	return o.Latitude != 0 || o.Longitude != 0
}

// PlaceResult is one external place search hit.
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Rating           float64  `json:"rating,omitempty"`
	PriceLevel       int      `json:"price_level,omitempty"`
	Types            []string `json:"types,omitempty"`
	PhotoURL         string   `json:"photo_url,omitempty"`
}

// UploadResult describes a stored image.
type UploadResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// PlacePrediction is one autocomplete suggestion.
type PlacePrediction struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}
