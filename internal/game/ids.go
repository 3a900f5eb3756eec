package game

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// ConnID identifies one live connection. The transport assigns it and may reuse it
// once the connection is gone.
type ConnID uint32

func (id ConnID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Vec3 is a position or rotation as sent on the wire.
type Vec3 = mgl32.Vec3

// Origin is where every player starts.
var Origin = Vec3{0, 0, 0}
