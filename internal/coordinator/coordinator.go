// Package coordinator implements the polling/decoding/write coordinator for
// a single heat pump: it drives poll cycles over the register catalog,
// merges decoded values into a cached snapshot, and gates register writes
// behind the read-only mode flag.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsoiks/heliotherm-bridge/internal/adapter/modbus"
	"github.com/tsoiks/heliotherm-bridge/internal/domain"
	"github.com/tsoiks/heliotherm-bridge/internal/metrics"
)

// Connection is the transport surface the coordinator needs. *modbus.Conn
// implements it; tests substitute fakes with call logs.
type Connection interface {
	Acquire(ctx context.Context) (modbus.RegisterClient, error)
	MarkFailed()
	Release()
	IsConnected() bool
}

// Publisher receives each snapshot after a successful cycle. Optional.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// Config holds coordinator configuration.
type Config struct {
	// ReadOnly gates all write operations. Defaults to true upstream;
	// the coordinator just enforces whatever the host validated.
	ReadOnly bool

	// WriteTimeout bounds a single-register write. Per-field read
	// timeouts are applied by the transport at the socket.
	WriteTimeout time.Duration
}

// Coordinator owns one connection, one register catalog, and the last-known-
// good snapshot. All protocol transactions — poll cycles and writes with
// their forced resync — are serialized by a transaction lock, so reads and
// writes never interleave on the connection.
type Coordinator struct {
	config    Config
	catalog   *domain.RegisterMap
	conn      Connection
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Registry

	// txMu guarantees at most one in-flight protocol transaction.
	txMu sync.Mutex

	// snapMu guards the snapshot fields below. The value map is replaced
	// as a whole, never mutated in place.
	snapMu     sync.RWMutex
	values     map[string]float64
	success    bool
	generation uint64
	timestamp  time.Time
}

// New creates a coordinator over a validated catalog and a connection
// manager. The snapshot starts empty with success=false until the first
// successful cycle.
func New(config Config, catalog *domain.RegisterMap, conn Connection, logger zerolog.Logger, metricsReg *metrics.Registry) *Coordinator {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	return &Coordinator{
		config:  config,
		catalog: catalog,
		conn:    conn,
		logger:  logger.With().Str("component", "coordinator").Logger(),
		metrics: metricsReg,
		values:  make(map[string]float64),
	}
}

// SetPublisher attaches a snapshot publisher. Must be called before the
// first cycle runs.
func (c *Coordinator) SetPublisher(p Publisher) {
	c.publisher = p
}

// Refresh runs one full poll cycle: acquire, read every field, decode,
// merge. It returns an error only for connection-level failures; per-field
// failures are logged and the field is omitted from the cycle.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	return c.cycle(ctx)
}

// cycle performs one fetch pass. Callers must hold txMu.
func (c *Coordinator) cycle(ctx context.Context) error {
	start := time.Now()

	client, err := c.conn.Acquire(ctx)
	if err != nil {
		// The whole cycle fails: clear the success flag but leave the
		// cached values untouched for consumers.
		c.snapMu.Lock()
		c.success = false
		c.snapMu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordCycle("connect_error", time.Since(start).Seconds(), 0, 0)
		}
		return fmt.Errorf("poll cycle: %w", err)
	}

	fields := c.catalog.Fields()
	working := make(map[string]float64, len(fields))
	omitted := 0

	for i := range fields {
		field := &fields[i]

		if ctx.Err() != nil {
			c.logger.Warn().Err(ctx.Err()).Str("field", field.Key).Msg("Cycle deadline expired mid-sweep")
			break
		}

		value, err := c.readField(client, field)
		if err != nil {
			omitted++
			c.logger.Warn().
				Err(err).
				Str("field", field.Key).
				Str("address", fmt.Sprintf("0x%04X", field.Address)).
				Msg("Field omitted from cycle")

			// A transport-level error poisons the shared stream; drop
			// the connection so the next acquire redials. Remaining
			// fields still get their attempt and fail fast.
			if isNetError(err) {
				c.conn.MarkFailed()
			}
			continue
		}

		working[field.Key] = value
	}

	c.merge(working)

	if c.metrics != nil {
		c.metrics.RecordCycle("success", time.Since(start).Seconds(), len(working), omitted)
	}

	c.logger.Debug().
		Int("fields", len(working)).
		Int("omitted", omitted).
		Dur("duration", time.Since(start)).
		Msg("Poll cycle completed")

	if len(working) > 0 && c.publisher != nil {
		c.publish(ctx)
	}

	return nil
}

// readField reads and decodes one field from its configured bank.
func (c *Coordinator) readField(client modbus.RegisterClient, field *domain.FieldDescriptor) (float64, error) {
	var data []byte
	var err error

	switch field.Bank {
	case domain.BankInput:
		data, err = client.ReadInputRegisters(field.Address, field.RegisterCount())
	default:
		data, err = client.ReadHoldingRegisters(field.Address, field.RegisterCount())
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrReadFailed, modbus.TranslateError(err))
	}

	return decodeField(field, data)
}

// merge applies the cycle's working snapshot. A non-empty working map
// atomically replaces the cached values and bumps the generation. An empty
// working map with a live connection leaves values and success unchanged: a
// fully-failed field sweep is not escalated while the transport is
// reachable.
func (c *Coordinator) merge(working map[string]float64) {
	if len(working) == 0 {
		return
	}

	c.snapMu.Lock()
	c.values = working
	c.success = true
	c.generation++
	c.timestamp = time.Now()
	gen, fields := c.generation, len(working)
	c.snapMu.Unlock()

	if c.metrics != nil {
		c.metrics.UpdateSnapshot(gen, fields)
	}
}

// publish hands the fresh snapshot to the publisher. Publish failures never
// affect the cycle outcome.
func (c *Coordinator) publish(ctx context.Context) {
	if err := c.publisher.PublishSnapshot(ctx, c.Snapshot()); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to publish snapshot")
	}
}

// Snapshot returns a copy of the last-known-good decoded state.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()

	values := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}

	return domain.Snapshot{
		Values:     values,
		Success:    c.success,
		Generation: c.generation,
		Timestamp:  c.timestamp,
	}
}

// RequestWrite writes one raw 16-bit word to a holding register and, on
// success, synchronously runs a full poll cycle so the snapshot reflects
// the new device state before returning. Transport failures return false;
// the only error this method ever returns is the read-only precondition
// violation, which is a caller-contract error.
func (c *Coordinator) RequestWrite(ctx context.Context, address uint16, raw int16) (bool, error) {
	if c.config.ReadOnly {
		if c.metrics != nil {
			c.metrics.RecordWriteRejected()
		}
		c.logger.Warn().
			Str("address", fmt.Sprintf("0x%04X", address)).
			Msg("Write rejected: read-only mode")
		return false, domain.ErrWriteRejected
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
	defer cancel()

	client, err := c.conn.Acquire(writeCtx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordWrite(false)
		}
		c.logger.Error().Err(err).Msg("Write failed: no connection")
		return false, nil
	}

	if _, err := client.WriteSingleRegister(address, uint16(raw)); err != nil {
		if c.metrics != nil {
			c.metrics.RecordWrite(false)
		}
		if isNetError(err) {
			c.conn.MarkFailed()
		}
		c.logger.Error().
			Err(fmt.Errorf("%w: %w", domain.ErrWriteFailed, modbus.TranslateError(err))).
			Str("address", fmt.Sprintf("0x%04X", address)).
			Int16("value", raw).
			Msg("Write failed")
		return false, nil
	}

	if c.metrics != nil {
		c.metrics.RecordWrite(true)
	}
	c.logger.Info().
		Str("address", fmt.Sprintf("0x%04X", address)).
		Int16("value", raw).
		Msg("Register written")

	// Forced resync: the caller observes the new device state as soon as
	// this returns. A resync failure does not undo the write.
	if err := c.cycle(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Post-write resync failed")
	}

	return true, nil
}

// WriteValue resolves a writable field by key, range-checks the engineering
// value, converts it to the raw register integer and delegates to
// RequestWrite.
func (c *Coordinator) WriteValue(ctx context.Context, key string, value float64) (bool, error) {
	field, err := c.catalog.Field(key)
	if err != nil {
		return false, err
	}
	if !field.IsWritable() {
		return false, fmt.Errorf("%w: %q", domain.ErrFieldNotWritable, key)
	}
	if field.HasRange() && (value < field.Min || value > field.Max) {
		return false, fmt.Errorf("%w: %q: %v not in [%v, %v]",
			domain.ErrValueOutOfRange, key, value, field.Min, field.Max)
	}

	return c.RequestWrite(ctx, field.Address, rawForValue(field, value))
}

// IsConnected reports whether the transport connection is currently live.
func (c *Coordinator) IsConnected() bool {
	return c.conn.IsConnected()
}

// ReadOnly reports the coordinator's write-gating mode.
func (c *Coordinator) ReadOnly() bool {
	return c.config.ReadOnly
}

// HealthCheck implements the health checker contract: healthy once the
// cached snapshot stems from a successful cycle.
func (c *Coordinator) HealthCheck(ctx context.Context) error {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	if !c.success {
		return errors.New("no successful poll cycle yet")
	}
	return nil
}

// Shutdown releases the connection. Idempotent.
func (c *Coordinator) Shutdown() {
	c.conn.Release()
}

// isNetError reports whether err wraps a transport-level network error, as
// opposed to a device exception response or a decode failure.
func isNetError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
