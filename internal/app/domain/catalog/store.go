package catalog

import (
	_ "embed"
	"fmt"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

//go:embed seed.yaml
var seedYAML []byte

// LoadSeed parses the embedded demo dataset.
func LoadSeed() (Data, error) {
	var d Data
	if err := yaml.Unmarshal(seedYAML, &d); err != nil {
		return Data{}, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	return d, nil
}

// Store holds the current catalog snapshot. Readers take a snapshot without
// locking; writers build a new Catalog and swap it in.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Catalog]
}

var _ models.PlaceLookup = (*Store)(nil)

func NewStore(c *Catalog) *Store {
	if c == nil {
		c = Empty()
	}
	s := &Store{}
	s.current.Store(c)
	return s
}

// Snapshot returns the catalog at the time of the call.
func (s *Store) Snapshot() *Catalog {
	return s.current.Load()
}

func (s *Store) GetPlaceByID(id string) (models.Place, bool) {
	return s.Snapshot().GetPlaceByID(id)
}

// Replace swaps in a whole new catalog.
func (s *Store) Replace(c *Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(c)
}

// Update rebuilds the catalog from a modified copy of its data.
func (s *Store) Update(fn func(d *Data)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.current.Load().Data()
	fn(&d)
	next, err := New(d)
	if err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

// MergeGeography merges cities and districts by id.
func (s *Store) MergeGeography(cities []models.City, districts []models.District) error {
	return s.Update(func(d *Data) {
		d.Cities = mergeByID(d.Cities, cities, func(c models.City) string { return c.ID })
		d.Districts = mergeByID(d.Districts, districts, func(x models.District) string { return x.ID })
	})
}

// MergeRoutes adds or replaces routes by id.
func (s *Store) MergeRoutes(routes ...models.Route) error {
	return s.Update(func(d *Data) {
		d.Routes = mergeByID(d.Routes, routes, func(r models.Route) string { return r.ID })
	})
}

// RemoveRoute drops a route if present.
func (s *Store) RemoveRoute(id string) error {
	return s.Update(func(d *Data) {
		kept := d.Routes[:0]
		for _, r := range d.Routes {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		d.Routes = kept
	})
}

// ApplyRatingSummary writes a new rating aggregate onto the cached route.
func (s *Store) ApplyRatingSummary(sum models.RatingSummary) error {
	return s.Update(func(d *Data) {
		for i := range d.Routes {
			if d.Routes[i].ID == sum.RouteID {
				d.Routes[i].AverageRating = sum.AverageRating
				d.Routes[i].RatingCount = sum.RatingCount
			}
		}
	})
}

// AdjustFavoriteCount adds delta to the cached favorite counter of a route.
func (s *Store) AdjustFavoriteCount(routeID string, delta int) error {
	return s.Update(func(d *Data) {
		for i := range d.Routes {
			if d.Routes[i].ID == routeID {
				d.Routes[i].FavoriteCount = max(0, d.Routes[i].FavoriteCount+delta)
			}
		}
	})
}
