package game

import (
	"fmt"
	"slices"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// Event - дискретное событие ввода
type Event interface {
	isEvent()
}

// SelectBlock выбирает тип блока по клавише 1..6
type SelectBlock struct {
	Key int
}

// PrimaryClick ставит выбранный блок в целевую ячейку
type PrimaryClick struct {
	Camera Camera
}

// SecondaryClick убирает блок из целевой ячейки
type SecondaryClick struct {
	Camera Camera
}

func (SelectBlock) isEvent()    {}
func (PrimaryClick) isEvent()   {}
func (SecondaryClick) isEvent() {}

// Outcome - результат обработки события
type Outcome struct {
	Target  vec.Vec3
	Changed bool
	Removed block.BlockID
}

// Handle применяет событие к состоянию
func (s *State) Handle(ev Event) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case SelectBlock:
		id := block.BlockID(e.Key)
		if e.Key < 0 || e.Key > 255 || !slices.Contains(block.Placeable(), id) || !s.world.Registry().IsValid(id) {
			return Outcome{}, fmt.Errorf("клавиша %d не соответствует блоку", e.Key)
		}
		s.selected = id
		return Outcome{Changed: true}, nil

	case PrimaryClick:
		target := TargetBlock(e.Camera.Eye, e.Camera.At, s.reach)
		placed := s.world.PlaceIfEmpty(target, s.selected)
		if placed {
			s.logger().Debug("Блок %s поставлен в %v", s.world.Registry().Name(s.selected), target)
		}
		return Outcome{Target: target, Changed: placed}, nil

	case SecondaryClick:
		target := TargetBlock(e.Camera.Eye, e.Camera.At, s.reach)
		removed := s.world.RemoveBlock(target)
		if removed == block.LuckyBlockID {
			s.collected++
			st := s.statusLocked()
			s.logger().Info("🍀 %s", st.Message)
		}
		return Outcome{Target: target, Changed: removed != block.AirBlockID, Removed: removed}, nil

	default:
		return Outcome{}, fmt.Errorf("неизвестное событие %T", ev)
	}
}
