package audio

import "github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"

// Sound is an engine-side loaded sound
type Sound uint64

// Voice is an engine-side playing instance of a sound
type Voice uint64

// Engine is the audio engine the bridge drives
type Engine interface {
	Init(api types.AudioAPI) error
	Load(name string) (Sound, error)
	Play(s Sound) (Voice, error)
	Stop(v Voice) error
	SetVolume(v Voice, volume float32) error
	Release(s Sound) error
	Close() error
}
