package world

import (
	"time"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
)

// BlockChange описывает одиночное изменение блока в мире
type BlockChange struct {
	Position vec.Vec3      // Мировые координаты блока
	Chunk    vec.Vec3      // Координаты чанка-владельца
	Old      block.BlockID // Тип до изменения
	New      block.BlockID // Тип после изменения
}

// BlockListener получает изменения блоков, сделанные через SetBlockAt
type BlockListener interface {
	OnBlockChanged(change BlockChange)
}

// BlockListenerFunc позволяет использовать функцию как BlockListener
type BlockListenerFunc func(change BlockChange)

// OnBlockChanged вызывает f(change)
func (f BlockListenerFunc) OnBlockChanged(change BlockChange) {
	f(change)
}

// MultiListener рассылает изменение всем непустым слушателям по порядку
func MultiListener(listeners ...BlockListener) BlockListener {
	var active []BlockListener
	for _, l := range listeners {
		if l != nil {
			active = append(active, l)
		}
	}
	return BlockListenerFunc(func(change BlockChange) {
		for _, l := range active {
			l.OnBlockChanged(change)
		}
	})
}

// Observer собирает статистику перестроений и отрисовки
type Observer interface {
	ChunkRebuilt(chunk vec.Vec3, vertices int, took time.Duration)
	ChunkDrawn(chunk vec.Vec3, vertices int)
}

type nopObserver struct{}

func (nopObserver) ChunkRebuilt(vec.Vec3, int, time.Duration) {}
func (nopObserver) ChunkDrawn(vec.Vec3, int)                   {}
