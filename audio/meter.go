package audio

import (
	"math"
	"sync"

	fft "github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

const (
	fftInputSize      = 2048
	historyBufferSize = fftInputSize * 4

	minDecibels = -100.0
	maxDecibels = -30.0

	bassCutoff = 250.0  // Hz
	midCutoff  = 2000.0 // Hz
	trebleTop  = 8000.0 // Hz
)

// Meter consumes an AudioDevice and reduces the most recent samples to four
// levels in [0,1]: rms, bass, mid and treble.
type Meter struct {
	device        AudioDevice
	mutex         sync.Mutex
	historyBuffer []float32
	bufferPos     int
	window        []float64

	smoothingFactor float32
	levels          [4]float32

	done chan struct{}
}

// NewMeter starts device and listens to it until Close.
func NewMeter(device AudioDevice) (*Meter, error) {
	m := &Meter{
		device:          device,
		historyBuffer:   make([]float32, historyBufferSize),
		window:          blackmanWindow(fftInputSize),
		smoothingFactor: 0.8,
	}
	audioChan, err := device.Start()
	if err != nil {
		return nil, errors.Wrap(err, "could not start audio device")
	}
	if audioChan != nil {
		m.done = make(chan struct{})
		go m.listen(audioChan)
	}
	return m, nil
}

func (m *Meter) listen(audioChan <-chan []float32) {
	defer close(m.done)
	for samples := range audioChan {
		m.Write(samples)
	}
	graphics.Logger().Debug("audio channel closed, meter listener exiting")
}

// Write appends samples to the history.
func (m *Meter) Write(samples []float32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, sample := range samples {
		m.historyBuffer[m.bufferPos] = sample
		m.bufferPos = (m.bufferPos + 1) % historyBufferSize
	}
}

func (m *Meter) recentSamples(numSamples int) []float32 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		index := (m.bufferPos - numSamples + i + historyBufferSize) % historyBufferSize
		out[i] = m.historyBuffer[index]
	}
	return out
}

// Levels analyses the latest window and returns the smoothed
// [rms, bass, mid, treble]. Call it once per frame.
func (m *Meter) Levels() [4]float32 {
	samples := m.recentSamples(fftInputSize)

	var sum float64
	windowed := make([]float64, fftInputSize)
	for i, s := range samples {
		sum += float64(s) * float64(s)
		windowed[i] = float64(s) * m.window[i]
	}
	rms := math.Min(math.Sqrt(sum/fftInputSize), 1)

	spectrum := fft.FFTReal(windowed)
	binHz := float64(m.device.SampleRate()) / fftInputSize
	var bands [3]float64
	var counts [3]int
	// skip DC; bins above the Nyquist frequency mirror the lower half
	for i := 1; i < fftInputSize/2; i++ {
		freq := float64(i) * binHz
		var band int
		switch {
		case freq < bassCutoff:
			band = 0
		case freq < midCutoff:
			band = 1
		case freq < trebleTop:
			band = 2
		default:
			continue
		}
		re, im := real(spectrum[i]), imag(spectrum[i])
		magnitude := math.Sqrt(re*re+im*im) * (2.0 / fftInputSize)
		bands[band] += scaleDecibels(20 * math.Log10(magnitude+1e-9))
		counts[band]++
	}

	current := [4]float32{float32(rms)}
	for i := range bands {
		if counts[i] > 0 {
			current[i+1] = float32(bands[i] / float64(counts[i]))
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := range m.levels {
		m.levels[i] = m.smoothingFactor*m.levels[i] + (1-m.smoothingFactor)*current[i]
	}
	return m.levels
}

// Close stops the device and waits for the listener to drain.
func (m *Meter) Close() error {
	err := m.device.Stop()
	if m.done != nil {
		<-m.done
	}
	return err
}

// scaleDecibels maps [minDecibels, maxDecibels] onto [0, 1].
func scaleDecibels(db float64) float64 {
	switch {
	case db < minDecibels:
		return 0
	case db > maxDecibels:
		return 1
	default:
		return (db - minDecibels) / (maxDecibels - minDecibels)
	}
}

func blackmanWindow(size int) []float64 {
	window := make([]float64, size)
	a0 := 0.42
	a1 := 0.5
	a2 := 0.08
	invSize := 1.0 / float64(size-1)
	for i := range window {
		t := float64(i) * invSize
		window[i] = a0 - (a1 * math.Cos(2*math.Pi*t)) + (a2 * math.Cos(4*math.Pi*t))
	}
	return window
}
