package catalog

import (
	"fmt"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/slug"
)

// Data is the raw content a Catalog is built from.
type Data struct {
	Cities    []models.City     `yaml:"cities"`
	Districts []models.District `yaml:"districts"`
	Places    []models.Place    `yaml:"places"`
	Routes    []models.Route    `yaml:"routes"`
}

// Catalog is an immutable, indexed view of cities, districts, places and
// routes. Indexes are built once by New; lookups never fail loudly and
// filters always return fresh slices.
type Catalog struct {
	data Data

	cityByID     map[string]int
	cityBySlug   map[string]int
	districtByID map[string]int
	placeByID    map[string]int
	routeByID    map[string]int
}

var _ models.PlaceLookup = (*Catalog)(nil)

// New indexes d. It rejects duplicate ids, districts of unknown cities and
// places whose district belongs to another city. City slugs are always
// derived from the city name.
func New(d Data) (*Catalog, error) {
	c := &Catalog{
		data: Data{
			Cities:    make([]models.City, len(d.Cities)),
			Districts: append([]models.District(nil), d.Districts...),
			Places:    append([]models.Place(nil), d.Places...),
			Routes:    append([]models.Route(nil), d.Routes...),
		},
		cityByID:     make(map[string]int, len(d.Cities)),
		cityBySlug:   make(map[string]int, len(d.Cities)),
		districtByID: make(map[string]int, len(d.Districts)),
		placeByID:    make(map[string]int, len(d.Places)),
		routeByID:    make(map[string]int, len(d.Routes)),
	}

	for i, city := range d.Cities {
		if _, dup := c.cityByID[city.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate city id %q", models.ErrValidation, city.ID)
		}
		city.Slug = slug.Make(city.Name)
		c.data.Cities[i] = city
		c.cityByID[city.ID] = i
		if _, taken := c.cityBySlug[city.Slug]; !taken {
			c.cityBySlug[city.Slug] = i
		}
	}

	for i, district := range c.data.Districts {
		if _, dup := c.districtByID[district.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate district id %q", models.ErrValidation, district.ID)
		}
		if _, ok := c.cityByID[district.CityID]; !ok {
			return nil, fmt.Errorf("%w: district %q references unknown city %q", models.ErrValidation, district.ID, district.CityID)
		}
		c.districtByID[district.ID] = i
	}

	for i, place := range c.data.Places {
		if _, dup := c.placeByID[place.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate place id %q", models.ErrValidation, place.ID)
		}
		if place.DistrictID != nil {
			idx, ok := c.districtByID[*place.DistrictID]
			if ok && c.data.Districts[idx].CityID != place.CityID {
				return nil, fmt.Errorf("%w: place %q district %q is outside city %q",
					models.ErrValidation, place.ID, *place.DistrictID, place.CityID)
			}
		}
		c.placeByID[place.ID] = i
	}

	for i, route := range c.data.Routes {
		if _, dup := c.routeByID[route.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate route id %q", models.ErrValidation, route.ID)
		}
		c.routeByID[route.ID] = i
	}

	return c, nil
}

// Empty returns a catalog with no content.
func Empty() *Catalog {
	c, _ := New(Data{})
	return c
}

func (c *Catalog) GetCityByID(id string) (models.City, bool) {
	i, ok := c.cityByID[id]
	if !ok {
		return models.City{}, false
	}
	return c.data.Cities[i], true
}

func (c *Catalog) GetCityBySlug(s string) (models.City, bool) {
	i, ok := c.cityBySlug[s]
	if !ok {
		return models.City{}, false
	}
	return c.data.Cities[i], true
}

func (c *Catalog) GetDistrictByID(id string) (models.District, bool) {
	i, ok := c.districtByID[id]
	if !ok {
		return models.District{}, false
	}
	return c.data.Districts[i], true
}

func (c *Catalog) GetPlaceByID(id string) (models.Place, bool) {
	i, ok := c.placeByID[id]
	if !ok {
		return models.Place{}, false
	}
	return c.data.Places[i], true
}

func (c *Catalog) GetRouteByID(id string) (models.Route, bool) {
	i, ok := c.routeByID[id]
	if !ok {
		return models.Route{}, false
	}
	return c.data.Routes[i], true
}

// Cities returns every city in insertion order.
func (c *Catalog) Cities() []models.City {
	return append(make([]models.City, 0, len(c.data.Cities)), c.data.Cities...)
}

// Routes returns every route in insertion order.
func (c *Catalog) Routes() []models.Route {
	return append(make([]models.Route, 0, len(c.data.Routes)), c.data.Routes...)
}

func (c *Catalog) GetDistrictsByCityID(cityID string) []models.District {
	out := make([]models.District, 0)
	for _, d := range c.data.Districts {
		if d.CityID == cityID {
			out = append(out, d)
		}
	}
	return out
}

func (c *Catalog) GetPlacesByCityID(cityID string) []models.Place {
	out := make([]models.Place, 0)
	for _, p := range c.data.Places {
		if p.CityID == cityID {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) GetPlacesByDistrictID(districtID string) []models.Place {
	out := make([]models.Place, 0)
	for _, p := range c.data.Places {
		if p.DistrictID != nil && *p.DistrictID == districtID {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) GetRoutesByCityID(cityID string) []models.Route {
	out := make([]models.Route, 0)
	for _, r := range c.data.Routes {
		if r.CityID == cityID {
			out = append(out, r)
		}
	}
	return out
}

// Data returns a copy of the underlying collections.
func (c *Catalog) Data() Data {
	return Data{
		Cities:    c.Cities(),
		Districts: append([]models.District(nil), c.data.Districts...),
		Places:    append([]models.Place(nil), c.data.Places...),
		Routes:    c.Routes(),
	}
}

// mergeByID replaces items with a matching id in place and appends new ones.
func mergeByID[T any](current, incoming []T, id func(T) string) []T {
	out := append(make([]T, 0, len(current)+len(incoming)), current...)
	pos := make(map[string]int, len(out))
	for i, item := range out {
		pos[id(item)] = i
	}
	for _, item := range incoming {
		if i, ok := pos[id(item)]; ok {
			out[i] = item
			continue
		}
		pos[id(item)] = len(out)
		out = append(out, item)
	}
	return out
}
