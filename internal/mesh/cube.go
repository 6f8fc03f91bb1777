// Package mesh строит вершинные данные кубов для чанков.
package mesh

import (
	"github.com/annel0/voxel-explorer/internal/render"
	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// Раскладка одной вершины: позиция, UV, цвет, вес текстуры
const (
	FloatsPerVertex = 10
	StrideBytes     = FloatsPerVertex * 4

	PositionOffset = 0
	UVOffset       = 3
	ColorOffset    = 5
	WeightOffset   = 9

	VerticesPerFace = 6
	VerticesPerCube = VerticesPerFace * int(block.FaceCount)
	FloatsPerCube   = VerticesPerCube * FloatsPerVertex
)

// Attributes описывает раскладку буфера для бэкенда
var Attributes = []render.Attribute{
	{Name: "a_Position", Size: 3, StrideBytes: StrideBytes, OffsetBytes: PositionOffset * 4},
	{Name: "a_UV", Size: 2, StrideBytes: StrideBytes, OffsetBytes: UVOffset * 4},
	{Name: "a_Color", Size: 4, StrideBytes: StrideBytes, OffsetBytes: ColorOffset * 4},
	{Name: "a_TexColorWeight", Size: 1, StrideBytes: StrideBytes, OffsetBytes: WeightOffset * 4},
}

// faceCorners - углы граней единичного куба в порядке
// (низ-лево, низ-право, верх-право, верх-лево), если смотреть снаружи.
// Такой порядок совпадает с порядком углов UVQuad.
var faceCorners = [block.FaceCount][4]mgl32.Vec3{
	block.FaceBack:   {{.5, -.5, -.5}, {-.5, -.5, -.5}, {-.5, .5, -.5}, {.5, .5, -.5}},
	block.FaceFront:  {{-.5, -.5, .5}, {.5, -.5, .5}, {.5, .5, .5}, {-.5, .5, .5}},
	block.FaceTop:    {{-.5, .5, .5}, {.5, .5, .5}, {.5, .5, -.5}, {-.5, .5, -.5}},
	block.FaceBottom: {{-.5, -.5, -.5}, {.5, -.5, -.5}, {.5, -.5, .5}, {-.5, -.5, .5}},
	block.FaceRight:  {{.5, -.5, .5}, {.5, -.5, -.5}, {.5, .5, -.5}, {.5, .5, .5}},
	block.FaceLeft:   {{-.5, -.5, -.5}, {-.5, -.5, .5}, {-.5, .5, .5}, {-.5, .5, -.5}},
}

// FaceNormals - внешние нормали граней
var FaceNormals = [block.FaceCount]mgl32.Vec3{
	block.FaceBack:   {0, 0, -1},
	block.FaceFront:  {0, 0, 1},
	block.FaceTop:    {0, 1, 0},
	block.FaceBottom: {0, -1, 0},
	block.FaceRight:  {1, 0, 0},
	block.FaceLeft:   {-1, 0, 0},
}

// Два треугольника на грань, против часовой стрелки
var triangleCorners = [VerticesPerFace]int{0, 1, 2, 0, 2, 3}

// BlockTransform возвращает матрицу T(origin) * T(local) * S(scale)
func BlockTransform(origin, local vec.Vec3, scale float32) mgl32.Mat4 {
	o := mgl32.Translate3D(float32(origin.X), float32(origin.Y), float32(origin.Z))
	l := mgl32.Translate3D(float32(local.X), float32(local.Y), float32(local.Z))
	return o.Mul4(l).Mul4(mgl32.Scale3D(scale, scale, scale))
}

// EmitCube дописывает в dst 36 вершин куба и возвращает расширенный срез
func EmitCube(dst []float32, m mgl32.Mat4, mat block.Material) []float32 {
	for f := block.Face(0); f < block.FaceCount; f++ {
		var corners [4]mgl32.Vec3
		for i, c := range faceCorners[f] {
			corners[i] = m.Mul4x1(c.Vec4(1)).Vec3()
		}

		uv := mat.Faces[f]
		for _, ci := range triangleCorners {
			p := corners[ci]
			dst = append(dst,
				p[0], p[1], p[2],
				uv[ci][0], uv[ci][1],
				mat.Color[0], mat.Color[1], mat.Color[2], mat.Color[3],
				mat.TexWeight,
			)
		}
	}
	return dst
}

// VertexCount возвращает число вершин в буфере
func VertexCount(buf []float32) int {
	return len(buf) / FloatsPerVertex
}
