package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	loadRates entities.RateTable
	loadErr   error
	saveErr   error
	saved     []entities.RateTable
}

func (f *fakePersister) Load(ctx context.Context) (entities.RateTable, error) {
	return f.loadRates, f.loadErr
}

func (f *fakePersister) Save(ctx context.Context, rates entities.RateTable) error {
	f.saved = append(f.saved, rates)
	return f.saveErr
}

func TestNewStoreStartsWithDefaults(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, entities.DefaultRates(), s.Current())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		persister *fakePersister
		want      entities.RateTable
	}{
		{
			name:      "persisted table",
			persister: &fakePersister{loadRates: entities.RateTable{"AZN": 1, "USD": 1.7}},
			want:      entities.RateTable{"AZN": 1, "USD": 1.7},
		},
		{
			name:      "read error falls back",
			persister: &fakePersister{loadErr: errors.New("no such file")},
			want:      entities.DefaultRates(),
		},
		{
			name:      "empty table falls back",
			persister: &fakePersister{loadRates: entities.RateTable{}},
			want:      entities.DefaultRates(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.persister)
			s.Replace(entities.RateTable{"AZN": 1})

			s.Load(context.Background())

			assert.Equal(t, tt.want, s.Current())
		})
	}
}

func TestSave(t *testing.T) {
	p := &fakePersister{}
	s := NewStore(p)
	rates := entities.RateTable{"AZN": 1}

	require.NoError(t, s.Save(context.Background(), rates))
	assert.Equal(t, []entities.RateTable{rates}, p.saved)

	p.saveErr = errors.New("disk full")
	err := s.Save(context.Background(), rates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.Save")
	assert.Equal(t, rates, s.Current())
}

func TestSaveWithoutPersister(t *testing.T) {
	s := NewStore(nil)
	assert.NoError(t, s.Save(context.Background(), entities.RateTable{"AZN": 1}))
}

func TestReplaceIsVisibleToConcurrentReaders(t *testing.T) {
	s := NewStore(nil)
	a := entities.RateTable{"AZN": 1, "USD": 2}
	b := entities.RateTable{"AZN": 1, "USD": 3, "EUR": 4}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				cur := s.Current()
				n := len(cur)
				assert.True(t, n == 5 || n == 2 || n == 3)
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			s.Replace(a)
		} else {
			s.Replace(b)
		}
	}
	wg.Wait()
}

func TestCodes(t *testing.T) {
	s := NewStore(nil)
	s.Replace(entities.RateTable{"USD": 2, "AZN": 1})

	assert.Equal(t, []string{"AZN", "USD"}, s.Codes())
}
