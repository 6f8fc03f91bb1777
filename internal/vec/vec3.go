package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// FromArray создает Vec3 из массива [x, y, z] (удобно для YAML-конфигурации)
func FromArray(a [3]int) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает все компоненты на n
func (v Vec3) Scale(n int) Vec3 {
	return Vec3{X: v.X * n, Y: v.Y * n, Z: v.Z * n}
}

// FloorDiv покомпонентно делит на n с округлением вниз.
// Для отрицательных координат это даёт координаты чанка, а не усечение к нулю.
func (v Vec3) FloorDiv(n int) Vec3 {
	return Vec3{X: FloorDiv(v.X, n), Y: FloorDiv(v.Y, n), Z: FloorDiv(v.Z, n)}
}

// FloorMod покомпонентно возвращает остаток в диапазоне [0, n)
func (v Vec3) FloorMod(n int) Vec3 {
	return Vec3{X: FloorMod(v.X, n), Y: FloorMod(v.Y, n), Z: FloorMod(v.Z, n)}
}

// InBox проверяет попадание в полуоткрытый куб [min, min+size)
func (v Vec3) InBox(min Vec3, size int) bool {
	return v.X >= min.X && v.X < min.X+size &&
		v.Y >= min.Y && v.Y < min.Y+size &&
		v.Z >= min.Z && v.Z < min.Z+size
}

// String возвращает строковое представление "(x,y,z)"
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// Key возвращает ключ "x:y:z" для хранилищ
func (v Vec3) Key() string {
	return fmt.Sprintf("%d:%d:%d", v.X, v.Y, v.Z)
}

// FloorDiv делит a на n с округлением к минус бесконечности
func FloorDiv(a, n int) int {
	q := a / n
	if (a%n != 0) && ((a < 0) != (n < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает остаток от деления a на n в диапазоне [0, n).
// Оператор % в Go усекает к нулю, поэтому отрицательный остаток корректируется.
func FloorMod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
