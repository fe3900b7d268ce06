package stream

import (
	"context"
	"errors"
	"io"

	"github.com/liliang-cn/askchat/internal/domain"
	"go.uber.org/zap"
)

// DefaultBufferSize is the read size used when none is configured
const DefaultBufferSize = 4096

// Sink receives decoded events. Implemented by the transcript reducer.
type Sink interface {
	// Apply folds one event into the transcript
	Apply(ev domain.StreamEvent)
	// Finish re-asserts the final accumulated content once the body ends
	Finish()
	Content() string
	Reasoning() string
}

// DriverOptions configures a Driver
type DriverOptions struct {
	StrictUTF8 bool
	BufferSize int
	Logger     *zap.Logger
	Observer   Observer
}

// Summary describes how a stream session ended
type Summary struct {
	State     State
	Frames    int
	Decode    DecodeStats
	Content   string
	Reasoning string
}

// Driver owns the read loop over one response body
type Driver struct {
	sink     Sink
	splitter *Splitter
	decoder  *Decoder
	logger   *zap.Logger
	bufSize  int

	state  State
	frames int
}

// NewDriver creates a driver feeding sink
func NewDriver(sink Sink, opts DriverOptions) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Driver{
		sink:     sink,
		splitter: NewSplitter(opts.StrictUTF8),
		decoder:  NewDecoder(logger, opts.Observer),
		logger:   logger,
		bufSize:  size,
		state:    StateIdle,
	}
}

// State returns the current state
func (d *Driver) State() State {
	return d.state
}

// Run reads r until it ends, fails, or ctx is cancelled.
//
// Cancellation is not an error: the summary reports StateCancelled and the
// error is nil. Read and decode failures return a *StreamReadError; events
// applied before the failure stay in the transcript.
func (d *Driver) Run(ctx context.Context, r io.Reader) (Summary, error) {
	if err := d.fire(TriggerOpen); err != nil {
		return d.summary(), err
	}

	buf := make([]byte, d.bufSize)
	for {
		if ctx.Err() != nil {
			return d.cancel()
		}

		n, readErr := r.Read(buf)
		if ctx.Err() != nil {
			return d.cancel()
		}

		if n > 0 {
			if err := d.process(buf[:n]); err != nil {
				return d.fail(err)
			}
			if err := d.fire(TriggerChunk); err != nil {
				return d.summary(), err
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return d.fail(readErr)
		}
	}

	if err := d.fire(TriggerEOF); err != nil {
		return d.summary(), err
	}
	if ctx.Err() != nil {
		return d.cancel()
	}

	if rest := d.splitter.Pending(); rest != "" {
		d.logger.Debug("Discarding unterminated frame", zap.Int("bytes", len(rest)))
	}
	d.sink.Finish()

	if err := d.fire(TriggerDrained); err != nil {
		return d.summary(), err
	}
	return d.summary(), nil
}

func (d *Driver) process(chunk []byte) error {
	frames, err := d.splitter.Feed(chunk)
	if err != nil {
		return err
	}
	for _, frame := range frames {
		d.frames++
		if ev, ok := d.decoder.Decode(frame); ok {
			d.sink.Apply(ev)
		}
	}
	return nil
}

func (d *Driver) cancel() (Summary, error) {
	if err := d.fire(TriggerCancel); err != nil {
		return d.summary(), err
	}
	d.logger.Debug("Stream cancelled", zap.Int("frames", d.frames))
	return d.summary(), nil
}

func (d *Driver) fail(cause error) (Summary, error) {
	_ = d.fire(TriggerFail)
	err := &StreamReadError{Partial: len(d.sink.Content()), Err: cause}
	d.logger.Error("Stream failed", zap.Int("frames", d.frames), zap.Error(err))
	return d.summary(), err
}

func (d *Driver) fire(t Trigger) error {
	next, err := d.state.Next(t)
	if err != nil {
		return err
	}
	d.state = next
	return nil
}

func (d *Driver) summary() Summary {
	return Summary{
		State:     d.state,
		Frames:    d.frames,
		Decode:    d.decoder.Stats(),
		Content:   d.sink.Content(),
		Reasoning: d.sink.Reasoning(),
	}
}
