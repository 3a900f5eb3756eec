package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/pixil98/go-blockdemo/internal/game"
)

// Tag is the message category.
type Tag uint16

const (
	TagSpawnPlayer Tag = iota
	TagDespawnPlayer
	TagMovement
	TagWorld
)

// Subject refines a tag. Only TagWorld uses more than one.
type Subject uint16

// Tags other than TagWorld always carry subject 0.
const (
	SubjectPlace    Subject = 0
	SubjectDestroy  Subject = 1
	SubjectSnapshot Subject = 2
)

const headerSize = 4

func (t Tag) String() string {
	switch t {
	case TagSpawnPlayer:
		return "spawn_player"
	case TagDespawnPlayer:
		return "despawn_player"
	case TagMovement:
		return "movement"
	case TagWorld:
		return "world"
	default:
		return fmt.Sprintf("tag(%d)", uint16(t))
	}
}

// Message is a single tagged payload as it travels between client and server.
type Message struct {
	Tag     Tag
	Subject Subject
	Payload []byte
}

// EncodeFrame lays the message out as tag, subject and payload, big-endian.
func EncodeFrame(m Message) []byte {
	b := make([]byte, headerSize+len(m.Payload))
	binary.BigEndian.PutUint16(b[0:2], uint16(m.Tag))
	binary.BigEndian.PutUint16(b[2:4], uint16(m.Subject))
	copy(b[headerSize:], m.Payload)
	return b
}

// DecodeFrame is the inverse of EncodeFrame. The returned payload does not alias b.
func DecodeFrame(b []byte) (Message, error) {
	if len(b) < headerSize {
		return Message{}, fmt.Errorf("frame of %d bytes: %w", len(b), game.ErrMalformedPayload)
	}

	payload := make([]byte, len(b)-headerSize)
	copy(payload, b[headerSize:])

	return Message{
		Tag:     Tag(binary.BigEndian.Uint16(b[0:2])),
		Subject: Subject(binary.BigEndian.Uint16(b[2:4])),
		Payload: payload,
	}, nil
}
