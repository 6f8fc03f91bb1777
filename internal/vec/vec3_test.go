package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorMod(t *testing.T) {
	cases := []struct {
		a, n, want int
	}{
		{0, 16, 0},
		{15, 16, 15},
		{16, 16, 0},
		{-1, 16, 15},
		{-16, 16, 0},
		{-17, 16, 15},
		{-3, 2, 1},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, FloorMod(c.a, c.n), "FloorMod(%d, %d)", c.a, c.n)
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, n, want int
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, FloorDiv(c.a, c.n), "FloorDiv(%d, %d)", c.a, c.n)
	}
}

func TestVec3FloorDivModRecompose(t *testing.T) {
	// Для любой точки q*n + r должно давать исходную координату
	for x := -40; x <= 40; x++ {
		v := Vec3{X: x, Y: -x, Z: x * 3}
		q := v.FloorDiv(16)
		r := v.FloorMod(16)
		assert.Equal(t, v, q.Scale(16).Add(r), "Рекомпозиция %v", v)
	}
}

func TestVec3InBox(t *testing.T) {
	min := Vec3{X: -2, Y: 0, Z: 4}

	assert.True(t, Vec3{X: -2, Y: 0, Z: 4}.InBox(min, 2))
	assert.True(t, Vec3{X: -1, Y: 1, Z: 5}.InBox(min, 2))
	assert.False(t, Vec3{X: 0, Y: 1, Z: 5}.InBox(min, 2), "Верхняя граница не включается")
	assert.False(t, Vec3{X: -3, Y: 0, Z: 4}.InBox(min, 2))
}

func TestVec3Key(t *testing.T) {
	assert.Equal(t, "-1:0:16", Vec3{X: -1, Y: 0, Z: 16}.Key())
	assert.Equal(t, "(1,2,3)", Vec3{X: 1, Y: 2, Z: 3}.String())
}
