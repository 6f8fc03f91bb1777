// Package game хранит состояние исследователя: мир, выбранный блок
// и счёт собранных блоков удачи.
package game

import (
	"fmt"
	"math"
	"sync"

	"github.com/annel0/voxel-explorer/internal/logging"
	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultReach - расстояние от глаза до целевого блока
const DefaultReach = 2.0

// Camera - то, что состояние знает о камере: глаз и точка взгляда
type Camera struct {
	Eye mgl32.Vec3
	At  mgl32.Vec3
}

// Status - снимок состояния для интерфейса и API
type Status struct {
	SelectedBlock string `json:"selected_block"`
	Collected     int    `json:"collected"`
	Total         int    `json:"total"`
	Victory       bool   `json:"victory"`
	Message       string `json:"message"`
	Frames        uint64 `json:"frames"`
}

// State владеет миром и сериализует к нему доступ: кадры, ввод и запросы API
// выполняются под одним мьютексом.
type State struct {
	mu sync.Mutex

	world    *world.World
	backend  render.Backend
	selected block.BlockID
	reach    float32

	collected int
	total     int
	frames    uint64
}

// NewState создаёт состояние поверх готового мира.
// total - количество блоков удачи, размещённых генератором.
func NewState(w *world.World, backend render.Backend, total int) *State {
	return &State{
		world:    w,
		backend:  backend,
		selected: block.GrassBlockID,
		reach:    DefaultReach,
		total:    total,
	}
}

// SetReach меняет дальность взаимодействия
func (s *State) SetReach(reach float32) {
	s.mu.Lock()
	s.reach = reach
	s.mu.Unlock()
}

// SetTotal обновляет количество блоков удачи (например, после загрузки мира)
func (s *State) SetTotal(total int) {
	s.mu.Lock()
	s.total = total
	s.mu.Unlock()
}

// WithWorld выполняет fn с эксклюзивным доступом к миру
func (s *State) WithWorld(fn func(w *world.World)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.world)
}

// Selected возвращает выбранный для установки тип блока
func (s *State) Selected() block.BlockID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// TargetBlock возвращает блок, на который смотрит камера:
// round(eye + normalize(at - eye) * reach)
func TargetBlock(eye, at mgl32.Vec3, reach float32) vec.Vec3 {
	dir := at.Sub(eye)
	if dir.Len() == 0 {
		return roundVec(eye)
	}
	return roundVec(eye.Add(dir.Normalize().Mul(reach)))
}

func roundVec(v mgl32.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: int(math.Round(float64(v[0]))),
		Y: int(math.Round(float64(v[1]))),
		Z: int(math.Round(float64(v[2]))),
	}
}

// Frame рисует один кадр
func (s *State) Frame(view, projection mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backend.SetUniform(render.UniformProjection, projection)
	s.backend.SetUniform(render.UniformView, view)
	s.world.DrawAll()
	s.frames++
}

// Status возвращает снимок состояния
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *State) statusLocked() Status {
	st := Status{
		SelectedBlock: s.world.Registry().Name(s.selected),
		Collected:     s.collected,
		Total:         s.total,
		Frames:        s.frames,
	}
	switch {
	case s.total > 0 && s.collected >= s.total:
		st.Victory = true
		st.Message = fmt.Sprintf("🎉 Победа! Собраны все %d блоков удачи!", s.total)
	case s.collected > 0:
		st.Message = fmt.Sprintf("Отлично! Найдено %d из %d блоков удачи!", s.collected, s.total)
	default:
		st.Message = "Найдите все блоки удачи, спрятанные в мире!"
	}
	return st
}

func (s *State) logger() *logging.Logger {
	return logging.GetGameLogger()
}
