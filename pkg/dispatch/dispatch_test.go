package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simpleelastix/pkg/raster"
)

func TestCrossProductRegistration(t *testing.T) {
	d := New[string]()
	d.RegisterCrossProduct([]raster.PixelID{raster.Float32}, []int{2, 3}, func(k Key) Handler[string] {
		return func() (string, error) { return k.String(), nil }
	})

	assert.True(t, d.HasHandler(raster.Float32, 2))
	assert.True(t, d.HasHandler(raster.Float32, 3))
	assert.False(t, d.HasHandler(raster.Float32, 4))
	assert.False(t, d.HasHandler(raster.UInt8, 2))

	assert.Equal(t, []Key{{raster.Float32, 2}, {raster.Float32, 3}}, d.Keys())
}

func TestDispatchIsDeterministic(t *testing.T) {
	calls := map[Key]int{}
	d := New[int]()
	d.RegisterCrossProduct([]raster.PixelID{raster.Float32}, []int{2, 3}, func(k Key) Handler[int] {
		return func() (int, error) {
			calls[k]++
			return k.Dimension, nil
		}
	})

	for i := 0; i < 5; i++ {
		assert.True(t, d.HasHandler(raster.Float32, 3))
		got, err := d.Dispatch(raster.Float32, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, got)
	}
	assert.Equal(t, 5, calls[Key{raster.Float32, 3}])
	assert.Zero(t, calls[Key{raster.Float32, 2}])
}

func TestDispatchMiss(t *testing.T) {
	d := New[int]()
	d.Register(raster.Float32, 2, func() (int, error) { return 1, nil })

	_, err := d.Dispatch(raster.Float64, 5)
	assert.ErrorIs(t, err, ErrUnsupportedCombination)
	assert.ErrorContains(t, err, "5-D double")
}

func TestRegisterReplaces(t *testing.T) {
	d := New[string]()
	d.Register(raster.Float32, 2, func() (string, error) { return "old", nil })
	d.Register(raster.Float32, 2, func() (string, error) { return "new", nil })

	got, err := d.Dispatch(raster.Float32, 2)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Len(t, d.Keys(), 1)
}
