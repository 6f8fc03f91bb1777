package game

import (
	"sync"
	"testing"

	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, total int) (*State, *render.Recorder) {
	t.Helper()
	rec := render.NewRecorder()
	w, err := world.CreateWorld(rec, world.DefaultOptions())
	require.NoError(t, err)
	return NewState(w, rec, total), rec
}

func TestTargetBlock(t *testing.T) {
	assert.Equal(t, vec.Vec3{X: 0, Y: 1, Z: -2},
		TargetBlock(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, -1}, 2))

	// Направление нормализуется
	assert.Equal(t, vec.Vec3{X: 2, Y: 1, Z: 0},
		TargetBlock(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{100, 1, 0}, 2))

	// Округление к ближайшему
	assert.Equal(t, vec.Vec3{X: -1, Y: 2, Z: 1},
		TargetBlock(mgl32.Vec3{-0.6, 1.6, 0.2}, mgl32.Vec3{-0.6, 1.6, 5}, 0.9))

	// Нулевое направление
	assert.Equal(t, vec.Vec3{X: 3}, TargetBlock(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{3, 0, 0}, 2))
}

func TestSelectBlock(t *testing.T) {
	s, _ := newState(t, 0)
	assert.Equal(t, block.GrassBlockID, s.Selected())

	_, err := s.Handle(SelectBlock{Key: 6})
	require.NoError(t, err)
	assert.Equal(t, block.PumpkinBlockID, s.Selected())
	assert.Equal(t, "pumpkin", s.Status().SelectedBlock)

	_, err = s.Handle(SelectBlock{Key: 0})
	assert.Error(t, err)
	_, err = s.Handle(SelectBlock{Key: 7})
	assert.Error(t, err)
	assert.Equal(t, block.PumpkinBlockID, s.Selected())
}

func TestPlaceAndCollect(t *testing.T) {
	s, _ := newState(t, 1)
	cam := Camera{Eye: mgl32.Vec3{0, 1, 0}, At: mgl32.Vec3{0, 1, -1}}
	target := vec.Vec3{X: 0, Y: 1, Z: -2}

	_, err := s.Handle(SelectBlock{Key: 4})
	require.NoError(t, err)

	out, err := s.Handle(PrimaryClick{Camera: cam})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, target, out.Target)

	// Повторная установка в занятую ячейку ничего не меняет
	out, err = s.Handle(PrimaryClick{Camera: cam})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	s.WithWorld(func(w *world.World) {
		assert.Equal(t, block.StoneBlockID, w.GetBlockAt(target))
		w.SetBlockAt(target, block.LuckyBlockID)
	})

	out, err = s.Handle(SecondaryClick{Camera: cam})
	require.NoError(t, err)
	assert.Equal(t, block.LuckyBlockID, out.Removed)

	st := s.Status()
	assert.Equal(t, 1, st.Collected)
	assert.True(t, st.Victory)
	assert.Contains(t, st.Message, "Победа")

	// Удаление пустоты не считается сбором
	out, err = s.Handle(SecondaryClick{Camera: cam})
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, s.Status().Collected)
}

func TestStatusMessages(t *testing.T) {
	s, _ := newState(t, 0)
	st := s.Status()
	assert.False(t, st.Victory, "Без блоков удачи победы нет")
	assert.Contains(t, st.Message, "Найдите")

	s.SetTotal(3)
	s.WithWorld(func(w *world.World) {
		w.SetBlockAt(vec.Vec3{X: 1, Y: 1, Z: 1}, block.LuckyBlockID)
	})
	_, err := s.Handle(SecondaryClick{Camera: Camera{Eye: mgl32.Vec3{1, 1, 3}, At: mgl32.Vec3{1, 1, 0}}})
	require.NoError(t, err)
	assert.Equal(t, "Отлично! Найдено 1 из 3 блоков удачи!", s.Status().Message)
}

func TestFrameDrawsEveryChunk(t *testing.T) {
	s, rec := newState(t, 0)
	s.WithWorld(func(w *world.World) { w.RebuildAll() })

	s.Frame(mgl32.Ident4(), mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100))
	assert.Len(t, rec.Draws(), 4)
	assert.Equal(t, uint64(1), s.Status().Frames)

	_, ok := rec.Uniform(render.UniformView)
	assert.True(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newState(t, 0)
	cam := Camera{Eye: mgl32.Vec3{0, 1, 0}, At: mgl32.Vec3{1, 1, 0}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if (i+j)%2 == 0 {
					_, _ = s.Handle(PrimaryClick{Camera: cam})
				} else {
					_, _ = s.Handle(SecondaryClick{Camera: cam})
				}
				s.Frame(mgl32.Ident4(), mgl32.Ident4())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(160), s.Status().Frames)
}
