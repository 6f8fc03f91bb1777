package block

// Face определяет грань куба. Порядок граней - внешний контракт между
// регистром материалов и генератором меша, его нельзя переупорядочивать.
type Face int

const (
	FaceBack   Face = iota // -Z
	FaceFront              // +Z
	FaceTop                // +Y
	FaceBottom             // -Y
	FaceRight              // +X
	FaceLeft               // -X

	FaceCount // всегда последний: количество граней
)

// String возвращает имя грани
func (f Face) String() string {
	switch f {
	case FaceBack:
		return "back"
	case FaceFront:
		return "front"
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	case FaceRight:
		return "right"
	case FaceLeft:
		return "left"
	default:
		return "unknown"
	}
}

// ParseFace возвращает грань по имени
func ParseFace(name string) (Face, bool) {
	for f := Face(0); f < FaceCount; f++ {
		if f.String() == name {
			return f, true
		}
	}
	return 0, false
}

// UVQuad - четыре угла текстурного прямоугольника в порядке
// (left,bottom), (right,bottom), (right,top), (left,top).
type UVQuad [4][2]float32

// RGBA - плоский цвет материала
type RGBA [4]float32

// Material описывает, как рисовать блок: UV для каждой грани, плоский цвет
// и вес смешивания (1.0 - только текстура, 0.0 - только цвет).
type Material struct {
	Name      string
	Faces     [FaceCount]UVQuad
	Color     RGBA
	TexWeight float32
}

// Blend возвращает итоговый цвет по формуле color*(1-w) + texel*w
func (m Material) Blend(texel RGBA) RGBA {
	w := m.TexWeight
	var out RGBA
	for i := range out {
		out[i] = m.Color[i]*(1-w) + texel[i]*w
	}
	return out
}
