package mesh

import (
	"testing"

	"github.com/annel0/voxel-explorer/internal/vec"
	"github.com/annel0/voxel-explorer/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vertexAt(buf []float32, i int) []float32 {
	return buf[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
}

func position(v []float32) mgl32.Vec3 {
	return mgl32.Vec3{v[PositionOffset], v[PositionOffset+1], v[PositionOffset+2]}
}

func TestEmitCubeSize(t *testing.T) {
	mat := block.Default().MustMaterial(block.StoneBlockID)

	buf := EmitCube(nil, mgl32.Ident4(), mat)
	assert.Len(t, buf, 360)
	assert.Equal(t, 36, VertexCount(buf))

	buf = EmitCube(buf, mgl32.Ident4(), mat)
	assert.Len(t, buf, 720, "Второй куб дописывается в конец")
}

func TestEmitCubeWindingIsCounterClockwise(t *testing.T) {
	mat := block.Default().MustMaterial(block.GrassBlockID)
	buf := EmitCube(nil, mgl32.Ident4(), mat)

	for f := 0; f < int(block.FaceCount); f++ {
		for tri := 0; tri < 2; tri++ {
			base := f*VerticesPerFace + tri*3
			a := position(vertexAt(buf, base))
			b := position(vertexAt(buf, base+1))
			c := position(vertexAt(buf, base+2))

			n := b.Sub(a).Cross(c.Sub(a))
			assert.Greater(t, n.Dot(FaceNormals[f]), float32(0),
				"Грань %s треугольник %d должен смотреть наружу", block.Face(f), tri)

			// Все вершины грани лежат на её плоскости
			for _, p := range []mgl32.Vec3{a, b, c} {
				assert.InDelta(t, 0.5, p.Dot(FaceNormals[f]), 1e-6)
			}
		}
	}
}

func TestEmitCubeUVAndColor(t *testing.T) {
	mat := block.Default().MustMaterial(block.PumpkinBlockID)
	buf := EmitCube(nil, mgl32.Ident4(), mat)

	want := [VerticesPerFace]int{0, 1, 2, 0, 2, 3}
	for f := 0; f < int(block.FaceCount); f++ {
		for i, corner := range want {
			v := vertexAt(buf, f*VerticesPerFace+i)
			assert.Equal(t, mat.Faces[f][corner][0], v[UVOffset], "u грани %d вершины %d", f, i)
			assert.Equal(t, mat.Faces[f][corner][1], v[UVOffset+1], "v грани %d вершины %d", f, i)
			assert.Equal(t, []float32(mat.Color[:]), v[ColorOffset:ColorOffset+4])
			assert.Equal(t, mat.TexWeight, v[WeightOffset])
		}
	}
}

func TestBlockTransform(t *testing.T) {
	m := BlockTransform(vec.Vec3{X: -16, Y: 0, Z: 16}, vec.Vec3{X: 3, Y: 1, Z: 2}, 1)
	mat := block.Default().MustMaterial(block.DirtBlockID)
	buf := EmitCube(nil, m, mat)

	center := mgl32.Vec3{-13, 1, 18}
	for i := 0; i < VerticesPerCube; i++ {
		d := position(vertexAt(buf, i)).Sub(center)
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 0.5, abs(d[k]), 1e-5, "Вершина %d смещена от центра на полкуба", i)
		}
	}
}

func TestBlockTransformScaleIsInnermost(t *testing.T) {
	m := BlockTransform(vec.Vec3{X: 10}, vec.Vec3{X: 1}, 0.5)
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()

	// Масштаб применяется к вершине, но не к смещениям
	assert.InDelta(t, 11.5, p[0], 1e-6)
}

func TestAttributesLayout(t *testing.T) {
	require.Len(t, Attributes, 4)

	total := 0
	for _, a := range Attributes {
		assert.Equal(t, 40, a.StrideBytes)
		assert.Equal(t, total*4, a.OffsetBytes, "Атрибут %s", a.Name)
		total += a.Size
	}
	assert.Equal(t, FloatsPerVertex, total)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func BenchmarkEmitCube(b *testing.B) {
	mat := block.Default().MustMaterial(block.StoneBlockID)
	m := BlockTransform(vec.Vec3{}, vec.Vec3{X: 1, Y: 2, Z: 3}, 1)
	buf := make([]float32, 0, FloatsPerCube)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = EmitCube(buf[:0], m, mat)
	}
}
