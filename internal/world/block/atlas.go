package block

// DefaultTileSize - размер одной текстуры в атласе, пикселей
const DefaultTileSize = 16

// DefaultAtlasSize - сторона атласа по умолчанию, пикселей
const DefaultAtlasSize = 64

// AtlasRect - прямоугольник текстуры в пиксельных координатах атласа.
// Ось Y атласа направлена вниз, ось V текстурных координат - вверх.
type AtlasRect struct {
	X, Y, W, H int
}

// Tile возвращает стандартный квадрат 16x16 с левым верхним углом (px, py)
func Tile(px, py int) AtlasRect {
	return AtlasRect{X: px, Y: py, W: DefaultTileSize, H: DefaultTileSize}
}

// Atlas описывает квадратный текстурный атлас размером Size x Size
type Atlas struct {
	Size int
}

// UV переводит пиксельный прямоугольник в нормализованные UV-координаты
func (a Atlas) UV(r AtlasRect) UVQuad {
	size := float32(a.Size)
	left := float32(r.X) / size
	right := float32(r.X+r.W) / size
	bottom := float32(a.Size-(r.Y+r.H)) / size
	top := float32(a.Size-r.Y) / size

	return UVQuad{
		{left, bottom},
		{right, bottom},
		{right, top},
		{left, top},
	}
}

// FaceRects - пиксельные прямоугольники для всех шести граней
type FaceRects [FaceCount]AtlasRect

// Uniform возвращает одинаковую текстуру на всех гранях
func Uniform(r AtlasRect) FaceRects {
	var f FaceRects
	for i := range f {
		f[i] = r
	}
	return f
}

// With возвращает копию с заменённой текстурой одной грани
func (f FaceRects) With(face Face, r AtlasRect) FaceRects {
	f[face] = r
	return f
}
