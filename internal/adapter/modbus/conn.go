// Package modbus owns the single Modbus TCP connection to the heat pump.
// It serializes connect attempts and bounds every connect with a timeout.
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/tsoiks/heliotherm-bridge/internal/domain"
	"github.com/tsoiks/heliotherm-bridge/internal/metrics"
)

// State is the connection lifecycle state. It is owned exclusively by the
// connection manager; no other component mutates it.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// RegisterClient is the subset of the Modbus protocol the bridge uses.
// goburrow's modbus.Client satisfies it; tests substitute fakes.
type RegisterClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

// Config holds configuration for the connection manager.
type Config struct {
	// Address is the device host:port.
	Address string

	// UnitID is the Modbus unit/slave identifier (0-247), sent with
	// every request.
	UnitID byte

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each read/write on the wire.
	RequestTimeout time.Duration
}

// Conn manages one TCP connection to the device. Concurrent callers of
// Acquire never race to connect: attempts are serialized by a mutex, and a
// live connection is returned without touching the network.
type Conn struct {
	config  Config
	logger  zerolog.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	state   State
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewConn creates a connection manager. No connection is made until the
// first Acquire.
func NewConn(config Config, logger zerolog.Logger, metricsReg *metrics.Registry) (*Conn, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrConnectionFailed)
	}
	if config.UnitID > 247 {
		return nil, domain.ErrInvalidUnitID
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 5 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 5 * time.Second
	}

	return &Conn{
		config:  config,
		logger:  logger.With().Str("component", "modbus-conn").Str("address", config.Address).Logger(),
		metrics: metricsReg,
		state:   StateDisconnected,
	}, nil
}

// Acquire returns a live client, establishing the connection first if
// needed. Once connected it is non-blocking until the connection is severed.
// On timeout or transport error the state is cleared to Disconnected and a
// connection error is returned.
func (c *Conn) Acquire(ctx context.Context) (RegisterClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected && c.client != nil {
		return c.client, nil
	}

	c.state = StateConnecting
	c.logger.Debug().Msg("Connecting to heat pump")

	handler := modbus.NewTCPClientHandler(c.config.Address)
	handler.Timeout = c.config.RequestTimeout
	handler.SlaveId = c.config.UnitID

	start := time.Now()

	connectCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	connectDone := make(chan error, 1)
	go func() {
		connectDone <- handler.Connect()
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			c.state = StateDisconnected
			c.handler = nil
			c.client = nil
			if c.metrics != nil {
				c.metrics.RecordConnect(false, time.Since(start).Seconds())
			}
			c.logger.Error().Err(err).Msg("Failed to connect to heat pump")
			return nil, fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
		}
	case <-connectCtx.Done():
		// The dial goroutine is abandoned; if it ever succeeds the
		// handler is closed rather than leaked.
		go func() {
			if err := <-connectDone; err == nil {
				handler.Close()
			}
		}()
		c.state = StateDisconnected
		c.handler = nil
		c.client = nil
		if c.metrics != nil {
			c.metrics.RecordConnect(false, time.Since(start).Seconds())
		}
		c.logger.Error().Msg("Connection attempt timed out")
		return nil, fmt.Errorf("%w: %v", domain.ErrConnectionTimeout, connectCtx.Err())
	}

	c.handler = handler
	c.client = modbus.NewClient(handler)
	c.state = StateConnected
	if c.metrics != nil {
		c.metrics.RecordConnect(true, time.Since(start).Seconds())
		c.metrics.SetConnected(true)
	}

	c.logger.Info().
		Uint8("unit_id", c.config.UnitID).
		Dur("elapsed", time.Since(start)).
		Msg("Connected to heat pump")

	return c.client, nil
}

// MarkFailed records a transport-level failure observed by a caller and
// drops the connection so the next Acquire redials.
func (c *Conn) MarkFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		if err := c.handler.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Error closing failed connection")
		}
	}
	c.handler = nil
	c.client = nil
	c.state = StateFailed
	if c.metrics != nil {
		c.metrics.SetConnected(false)
	}
}

// Release closes the connection. Close errors are logged, never returned,
// and the state always ends up Disconnected. Safe to call repeatedly.
func (c *Conn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		if err := c.handler.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Error closing connection")
		}
	}
	c.handler = nil
	c.client = nil
	c.state = StateDisconnected
	if c.metrics != nil {
		c.metrics.SetConnected(false)
	}

	c.logger.Debug().Msg("Disconnected from heat pump")
}

// IsConnected returns true while a live connection is held.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TranslateError maps a Modbus exception response onto its domain sentinel.
// Non-exception errors pass through unchanged.
func TranslateError(err error) error {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return domain.ModbusExceptionToError(mbErr.ExceptionCode)
	}
	return err
}
