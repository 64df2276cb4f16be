package favorites

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	t.Run("toggle returns new membership", func(t *testing.T) {
		s := NewSet()
		assert.True(t, s.Toggle("r1"))
		assert.True(t, s.Has("r1"))
		assert.False(t, s.Toggle("r1"))
		assert.False(t, s.Has("r1"))
	})

	t.Run("double toggle restores the set", func(t *testing.T) {
		s := NewSet("a", "b")
		before := s.IDs()
		for _, id := range []string{"a", "c", "unknown-route"} {
			s.Toggle(id)
			s.Toggle(id)
			assert.Equal(t, before, s.IDs(), id)
		}
	})

	t.Run("ids are sorted copies", func(t *testing.T) {
		s := NewSet("c", "a", "b")
		ids := s.IDs()
		assert.Equal(t, []string{"a", "b", "c"}, ids)
		ids[0] = "z"
		assert.True(t, s.Has("a"))
	})

	t.Run("replace", func(t *testing.T) {
		s := NewSet("a")
		s.Replace([]string{"x", "y", "x"})
		assert.Equal(t, []string{"x", "y"}, s.IDs())
		assert.Equal(t, 2, s.Len())
	})

	t.Run("concurrent toggles", func(t *testing.T) {
		s := NewSet()
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("r%d", i%5)
				s.Toggle(id)
				s.Toggle(id)
			}()
		}
		wg.Wait()
		assert.Zero(t, s.Len())
	})
}
