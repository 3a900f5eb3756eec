package world

import (
	"math"

	"github.com/pixil98/go-blockdemo/internal/game"
)

// Block is one occupied cell of the unit grid. Two blocks are the same block exactly
// when their coordinates are equal.
type Block struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// Snap rounds each coordinate to the nearest integer. Ties go to the even neighbour.
func Snap(v game.Vec3) Block {
	return Block{
		X: snapAxis(v[0]),
		Y: snapAxis(v[1]),
		Z: snapAxis(v[2]),
	}
}

func snapAxis(f float32) int32 {
	r := math.RoundToEven(float64(f))
	switch {
	case math.IsNaN(r):
		return 0
	case r > math.MaxInt32:
		return math.MaxInt32
	case r < math.MinInt32:
		return math.MinInt32
	}
	return int32(r)
}

// Vec returns the block's position as floats, ready for the wire.
func (b Block) Vec() game.Vec3 {
	return game.Vec3{float32(b.X), float32(b.Y), float32(b.Z)}
}

func (b Block) less(o Block) bool {
	if b.X != o.X {
		return b.X < o.X
	}
	if b.Y != o.Y {
		return b.Y < o.Y
	}
	return b.Z < o.Z
}

const (
	floorY      = -2
	floorRadius = 5
)

// Floor is the slab every world starts with: y = -2 for x and z in [-5, 5].
func Floor() []Block {
	blocks := make([]Block, 0, (2*floorRadius+1)*(2*floorRadius+1))
	for x := int32(-floorRadius); x <= floorRadius; x++ {
		for z := int32(-floorRadius); z <= floorRadius; z++ {
			blocks = append(blocks, Block{X: x, Y: floorY, Z: z})
		}
	}
	return blocks
}
