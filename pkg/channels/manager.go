package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"slackadder/pkg/logger"
)

const stopTimeout = 30 * time.Second

// Manager owns the registered transports and their lifecycle.
type Manager struct {
	log      *logger.Logger
	channels map[string]Channel
	started  []Channel
	mu       sync.RWMutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new channel manager.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		log:      log,
		channels: make(map[string]Channel),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register registers a channel with the manager.
func (m *Manager) Register(channel Channel) error {
	if channel == nil {
		return fmt.Errorf("channel cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := channel.ID()
	if _, exists := m.channels[id]; exists {
		return fmt.Errorf("channel %s already registered", id)
	}

	m.channels[id] = channel
	m.log.Info("Registered channel",
		zap.String("id", id),
		zap.String("name", channel.Name()))

	return nil
}

// Unregister removes a channel from the manager.
func (m *Manager) Unregister(channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[channelID]; !exists {
		return fmt.Errorf("channel %s not found", channelID)
	}

	delete(m.channels, channelID)
	m.log.Info("Unregistered channel", zap.String("id", channelID))

	return nil
}

// Start starts every registered channel. A channel that fails to start
// stops the ones already running and the error is returned.
func (m *Manager) Start() error {
	m.log.Info("Starting channel manager")

	channels := m.ListChannels()
	for _, channel := range channels {
		m.log.Info("Starting channel",
			zap.String("id", channel.ID()),
			zap.String("name", channel.Name()))

		if err := channel.Start(m.ctx); err != nil {
			m.log.Error("Channel start failed",
				zap.String("channel", channel.ID()),
				zap.Error(err))
			_ = m.Stop()
			return fmt.Errorf("starting channel %s: %w", channel.ID(), err)
		}

		m.mu.Lock()
		m.started = append(m.started, channel)
		m.mu.Unlock()
	}

	if len(channels) == 0 {
		m.log.Warn("No channels registered")
	} else {
		m.log.Info("Started channels", zap.Int("count", len(channels)))
	}

	return nil
}

// Stop stops the started channels in reverse start order.
func (m *Manager) Stop() error {
	m.log.Info("Stopping channel manager")

	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var firstErr error
	for i := len(started) - 1; i >= 0; i-- {
		ch := started[i]
		if err := ch.Stop(ctx); err != nil {
			m.log.Error("Error stopping channel",
				zap.String("channel", ch.ID()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Cancel last so in-flight commands see Stop first and can still report.
	m.cancel()

	m.log.Info("Channel manager stopped")
	return firstErr
}

// GetChannel returns a channel by ID.
func (m *Manager) GetChannel(channelID string) (Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channel, exists := m.channels[channelID]
	if !exists {
		return nil, fmt.Errorf("channel %s not found", channelID)
	}

	return channel, nil
}

// ListChannels returns all registered channels sorted by ID.
func (m *Manager) ListChannels() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].ID() < channels[j].ID()
	})

	return channels
}
