// Package audio plays the viewer's background music.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/objengine/internal/logger"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// Manager handles background music playback.
type Manager struct {
	mu sync.RWMutex

	// State
	initialized bool
	sampleRate  beep.SampleRate
	log         *zap.Logger

	// BGM
	bgmStreamer beep.StreamSeekCloser
	bgmCtrl     *beep.Ctrl
	bgmVolume   *effects.Volume
	bgmPlaying  bool
	bgmPath     string

	// 0.0 to 1.0
	volume float64
	muted  bool
}

// New creates a new audio manager.
func New() *Manager {
	return &Manager{
		volume: 0.7,
		log:    logger.Named("audio"),
	}
}

// Init initializes the audio system.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.sampleRate = DefaultSampleRate
	err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30))
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	m.initialized = true
	return nil
}

// Close shuts down the audio system.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopBGMInternal()
	m.initialized = false
}

// IsInitialized returns whether the audio system is initialized.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetVolume sets the BGM volume (0.0 to 1.0).
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp(vol, 0, 1)
	m.updateBGMVolume()
}

// Volume returns the BGM volume.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// SetMuted silences playback without losing the volume level.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.updateBGMVolume()
}

// Muted reports whether playback is silenced.
func (m *Manager) Muted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.muted
}

func (m *Manager) updateBGMVolume() {
	if m.bgmVolume == nil {
		return
	}
	vol := m.volume
	if m.muted || vol <= 0 {
		m.bgmVolume.Silent = true
		return
	}
	m.bgmVolume.Silent = false
	m.bgmVolume.Volume = volumeToDb(vol)
}

// volumeToDb converts a 0-1 volume to decibel scale.
// vol=1 -> 0dB, vol=0.5 -> -6dB, vol=0.25 -> -12dB.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100 // Effectively silent
	}
	return 20 * math.Log10(vol)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// PlayBGMFile reads a WAV file and plays it.
func (m *Manager) PlayBGMFile(path string, loop bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bgm: %w", err)
	}
	return m.PlayBGM(data, path, loop)
}

// PlayBGM plays background music from WAV data.
// If loop is true, the music will loop indefinitely.
func (m *Manager) PlayBGM(data []byte, path string, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return fmt.Errorf("audio not initialized")
	}

	m.stopBGMInternal()

	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	var resampled beep.Streamer = streamer
	if format.SampleRate != m.sampleRate {
		resampled = beep.Resample(4, format.SampleRate, m.sampleRate, streamer)
	}

	finalStreamer := resampled
	if loop {
		finalStreamer = &loopStreamer{streamer: streamer, resampled: resampled}
	}

	m.bgmCtrl = &beep.Ctrl{Streamer: finalStreamer, Paused: false}
	m.bgmVolume = &effects.Volume{
		Streamer: m.bgmCtrl,
		Base:     2,
	}
	m.updateBGMVolume()

	m.bgmStreamer = streamer
	m.bgmPath = path
	m.bgmPlaying = true

	speaker.Play(beep.Seq(m.bgmVolume, beep.Callback(func() {
		m.mu.Lock()
		m.bgmPlaying = false
		m.mu.Unlock()
	})))

	m.log.Info("bgm started", zap.String("path", path), zap.Bool("loop", loop))
	return nil
}

// StopBGM stops the current background music.
func (m *Manager) StopBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopBGMInternal()
}

func (m *Manager) stopBGMInternal() {
	if m.bgmCtrl != nil {
		m.bgmCtrl.Paused = true
	}
	if m.initialized {
		speaker.Clear()
	}
	m.bgmPlaying = false
	if m.bgmStreamer != nil {
		m.bgmStreamer.Close()
		m.bgmStreamer = nil
	}
	m.bgmCtrl = nil
	m.bgmVolume = nil
	m.bgmPath = ""
}

// PauseBGM pauses the current background music.
func (m *Manager) PauseBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmCtrl != nil {
		m.bgmCtrl.Paused = true
		m.bgmPlaying = false
	}
}

// ResumeBGM resumes the paused background music.
func (m *Manager) ResumeBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmCtrl != nil {
		m.bgmCtrl.Paused = false
		m.bgmPlaying = true
	}
}

// IsBGMPlaying returns whether BGM is currently playing.
func (m *Manager) IsBGMPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgmPlaying
}

// BGMPath returns the path of the currently playing BGM.
func (m *Manager) BGMPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgmPath
}

// loopStreamer rewinds the source when it runs out.
type loopStreamer struct {
	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.resampled.Stream(samples[filled:])
		filled += n
		if !ok {
			if err := l.streamer.Seek(0); err != nil {
				return filled, false
			}
			if n == 0 && l.streamer.Len() == 0 {
				return filled, filled > 0
			}
		}
	}
	return filled, true
}

func (l *loopStreamer) Err() error {
	return l.streamer.Err()
}
