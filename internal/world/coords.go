package world

import "github.com/annel0/voxel-explorer/internal/vec"

// ToIndex переводит локальные координаты в индекс ячейки: x + y*S + z*S*S
func ToIndex(x, y, z, size int) int {
	return x + y*size + z*size*size
}

// ToCoord - обратное к ToIndex преобразование
func ToCoord(i, size int) (x, y, z int) {
	x = i % size
	y = (i / size) % size
	z = i / (size * size)
	return x, y, z
}

// InChunk проверяет, что локальные координаты лежат в [0, size)
func InChunk(x, y, z, size int) bool {
	return x >= 0 && x < size &&
		y >= 0 && y < size &&
		z >= 0 && z < size
}

// WorldToLocal возвращает координаты блока внутри чанка с началом origin.
// Остаток берётся с округлением вниз, поэтому результат никогда не отрицательный.
func WorldToLocal(world, origin vec.Vec3, size int) vec.Vec3 {
	return world.Sub(origin).FloorMod(size)
}

// ChunkCoordOf возвращает координаты чанка, которому принадлежит мировая точка
func ChunkCoordOf(world vec.Vec3, size int) vec.Vec3 {
	return world.FloorDiv(size)
}

// ChunkOrigin возвращает мировые координаты начала чанка
func ChunkOrigin(chunk vec.Vec3, size int) vec.Vec3 {
	return chunk.Scale(size)
}
