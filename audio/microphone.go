package audio

import (
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// Microphone captures the default input device through portaudio.
type Microphone struct {
	sampleRate  int
	stream      *portaudio.Stream
	audioChan   chan []float32
	isStreaming bool
}

func NewMicrophone(sampleRate int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize portaudio")
	}
	return &Microphone{sampleRate: sampleRate}, nil
}

func (m *Microphone) audioCallback(in []float32) {
	// portaudio reuses its buffer
	dataCopy := make([]float32, len(in))
	copy(dataCopy, in)

	select {
	case m.audioChan <- dataCopy:
	default:
		graphics.Logger().Debug("audio channel full, dropping chunk", "samples", len(in))
	}
}

func (m *Microphone) Start() (<-chan []float32, error) {
	m.audioChan = make(chan []float32, 16)

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		close(m.audioChan)
		return nil, errors.Wrap(err, "no default audio host")
	}
	if host.DefaultInputDevice == nil {
		close(m.audioChan)
		return nil, errors.Errorf("audio host %s has no input device", host.Name)
	}

	params := portaudio.HighLatencyParameters(host.DefaultInputDevice, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(m.sampleRate)

	stream, err := portaudio.OpenStream(params, m.audioCallback)
	if err != nil {
		close(m.audioChan)
		return nil, errors.Wrap(err, "failed to open audio stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		close(m.audioChan)
		return nil, errors.Wrap(err, "failed to start audio stream")
	}
	m.stream = stream
	m.isStreaming = true
	graphics.Logger().Info("microphone started", "device", host.DefaultInputDevice.Name, "rate", m.sampleRate)
	return m.audioChan, nil
}

func (m *Microphone) Stop() error {
	if !m.isStreaming {
		return portaudio.Terminate()
	}
	m.isStreaming = false
	err := m.stream.Close()
	close(m.audioChan)
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return errors.Wrap(err, "failed to stop microphone")
}

func (m *Microphone) SampleRate() int {
	return m.sampleRate
}

// Open returns the microphone, or a NullDevice when it cannot be opened.
func Open(sampleRate int) AudioDevice {
	mic, err := NewMicrophone(sampleRate)
	if err != nil {
		graphics.Logger().Warn("microphone unavailable, using silence", "error", err)
		return NewNullDevice(sampleRate)
	}
	return mic
}
