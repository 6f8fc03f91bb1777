// Package render описывает графический бэкенд, в который чанки выгружают
// вершинные буферы и отправляют вызовы отрисовки.
package render

// BufferID - непрозрачный дескриптор вершинного буфера бэкенда
type BufferID uint32

// NoBuffer - нулевой дескриптор, буфер не создан
const NoBuffer BufferID = 0

// Attribute описывает один вершинный атрибут внутри чередующегося буфера
type Attribute struct {
	Name        string
	Size        int // количество float32
	StrideBytes int
	OffsetBytes int
}

// Backend - минимальный набор операций графического API, нужный миру.
// Реализация на OpenGL живёт вне модуля, тесты и CLI используют Recorder.
type Backend interface {
	CreateBuffer() BufferID
	DeleteBuffer(id BufferID)
	BindBuffer(id BufferID)
	// BufferData заменяет содержимое привязанного буфера целиком
	BufferData(data []float32)
	VertexAttribPointer(attr Attribute)
	// DrawArrays рисует count вершин привязанного буфера начиная с first
	DrawArrays(first, count int)
	SetUniform(name string, value any)
	UseProgram(vertexSrc, fragmentSrc string) error
}
