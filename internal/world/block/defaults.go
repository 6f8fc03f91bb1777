package block

// DefaultDefinitions - таблица блоков по умолчанию. Все прямоугольники
// указаны в пикселях атласа 64x64 с текстурами 16x16.
var DefaultDefinitions = map[BlockID]Definition{
	LuckyBlockID: {
		Name:      "lucky",
		Faces:     Uniform(Tile(23, 3)),
		Color:     RGBA{1, 0, 0, 1},
		TexWeight: 1,
	},
	GrassBlockID: {
		Name: "grass",
		Faces: Uniform(Tile(3, 23)).
			With(FaceTop, Tile(3, 43)).
			With(FaceBottom, Tile(3, 3)),
		Color:     RGBA{0, 1, 0, 1},
		TexWeight: 1,
	},
	DirtBlockID: {
		Name:      "dirt",
		Faces:     Uniform(Tile(3, 3)),
		Color:     RGBA{1, 0, 0, 1},
		TexWeight: 1,
	},
	StoneBlockID: {
		Name:      "stone",
		Faces:     Uniform(Tile(43, 43)),
		Color:     RGBA{1, 1, 1, 1},
		TexWeight: 1,
	},
	OakPlankBlockID: {
		Name:      "oak_plank",
		Faces:     Uniform(Tile(43, 3)),
		Color:     RGBA{1, 0, 0, 1},
		TexWeight: 1,
	},
	PumpkinBlockID: {
		Name: "pumpkin",
		Faces: Uniform(Tile(23, 43)).
			With(FaceBack, Tile(23, 23)).
			With(FaceTop, Tile(43, 23)),
		Color:     RGBA{1, 0.5, 0, 1},
		TexWeight: 1,
	},
}

// Placeable возвращает блоки, которые игрок выбирает клавишами 1..6.
// Номер клавиши совпадает с ID блока.
func Placeable() []BlockID {
	return []BlockID{LuckyBlockID, GrassBlockID, DirtBlockID, StoneBlockID, OakPlankBlockID, PumpkinBlockID}
}
