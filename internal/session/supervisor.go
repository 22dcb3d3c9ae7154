/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package session

/*****************************************************************************************************************/

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"golang.org/x/sync/errgroup"

	"github.com/observerly/skyguide/pkg/autofocus"
	"github.com/observerly/skyguide/pkg/config"
	"github.com/observerly/skyguide/pkg/device"
	"github.com/observerly/skyguide/pkg/events"
	"github.com/observerly/skyguide/pkg/extract"
	"github.com/observerly/skyguide/pkg/polaralign"
	"github.com/observerly/skyguide/pkg/solve"
)

/*****************************************************************************************************************/

// tickInterval is how often a running engine's Tick is driven by the supervisor's
// own goroutine, independent of whatever cadence the caller polls Subscribe() at.
const tickInterval = 250 * time.Millisecond

/*****************************************************************************************************************/

// Supervisor holds the single set of strong device references for a session (one
// mount, one camera, one focuser, one extractor, one solver) and arbitrates the
// Auto-Focus and Polar-Alignment engines against them, since only one engine may
// legitimately own the camera at a time. It replaces the package-level device
// singletons a single-command CLI can get away with: a session host embeds a
// Supervisor instead of reaching for global state.
type Supervisor struct {
	sessionLock sync.Mutex

	Mount     device.Mount
	Camera    device.Camera
	Focuser   device.Focuser
	Extractor extract.Extractor
	Solver    solve.Solver

	Config config.Config

	AutoFocus  *autofocus.Engine
	PolarAlign *polaralign.Engine

	fanLock     sync.Mutex
	subscribers map[chan events.Event]struct{}

	internal chan events.Event
}

/*****************************************************************************************************************/

// NewSupervisor constructs a Supervisor and the two engines it arbitrates, wiring
// both to the same internal fan-out channel.
func NewSupervisor(
	mount device.Mount,
	camera device.Camera,
	focuser device.Focuser,
	extractor extract.Extractor,
	solver solve.Solver,
	cfg config.Config,
) *Supervisor {
	internal := make(chan events.Event, 256)

	s := &Supervisor{
		Mount:       mount,
		Camera:      camera,
		Focuser:     focuser,
		Extractor:   extractor,
		Solver:      solver,
		Config:      cfg,
		subscribers: make(map[chan events.Event]struct{}),
		internal:    internal,
	}

	s.AutoFocus = autofocus.NewEngine(camera, focuser, extractor, cfg, internal)
	s.PolarAlign = polaralign.NewEngine(mount, camera, solver, cfg, internal)

	go s.fanOut()

	return s
}

/*****************************************************************************************************************/

// fanOut copies every event off the internal channel to each currently-subscribed
// channel, dropping the event for a subscriber whose buffer is full rather than
// blocking the engines on a slow reader.
func (s *Supervisor) fanOut() {
	for ev := range s.internal {
		s.fanLock.Lock()

		for sub := range s.subscribers {
			select {
			case sub <- ev:
			default:
			}
		}

		s.fanLock.Unlock()
	}
}

/*****************************************************************************************************************/

// Subscribe registers a new buffered event channel and returns it; the caller should
// eventually call Unsubscribe to stop receiving and allow the channel to be garbage
// collected.
func (s *Supervisor) Subscribe(buffer int) chan events.Event {
	ch := make(chan events.Event, buffer)

	s.fanLock.Lock()
	s.subscribers[ch] = struct{}{}
	s.fanLock.Unlock()

	return ch
}

/*****************************************************************************************************************/

func (s *Supervisor) Unsubscribe(ch chan events.Event) {
	s.fanLock.Lock()
	delete(s.subscribers, ch)
	s.fanLock.Unlock()
}

/*****************************************************************************************************************/

var (
	runIDMu      sync.Mutex
	runIDEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newRunID mints a ULID for a single engine run, monotonic within the same
// millisecond via ulid.Monotonic so two runs started in quick succession still sort
// in start order.
func newRunID() string {
	runIDMu.Lock()
	defer runIDMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), runIDEntropy).String()
}

/*****************************************************************************************************************/

// RunAutoFocus takes the camera/focuser lock for the session, starts the Auto-Focus
// engine, and drives it to completion (or ctx cancellation) via an errgroup-bounded
// tick loop. Returns the run's ULID for correlation against the event stream.
func (s *Supervisor) RunAutoFocus(ctx context.Context) (string, error) {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()

	runID := newRunID()

	if err := s.AutoFocus.Start(time.Now()); err != nil {
		return runID, fmt.Errorf("autofocus run %s failed to start: %w", runID, err)
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return tickUntilTerminal(gctx, func(now time.Time) error {
			return s.AutoFocus.Tick(now)
		}, func() bool {
			st := s.AutoFocus.State()
			return st == autofocus.StateCompleted || st == autofocus.StateError
		})
	})

	if err := group.Wait(); err != nil {
		s.AutoFocus.Stop()
		return runID, fmt.Errorf("autofocus run %s: %w", runID, err)
	}

	return runID, nil
}

/*****************************************************************************************************************/

// RunPolarAlignment is RunAutoFocus's counterpart for the Polar-Alignment engine.
func (s *Supervisor) RunPolarAlignment(ctx context.Context) (string, error) {
	s.sessionLock.Lock()
	defer s.sessionLock.Unlock()

	runID := newRunID()

	if err := s.PolarAlign.Start(time.Now()); err != nil {
		return runID, fmt.Errorf("polaralign run %s failed to start: %w", runID, err)
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return tickUntilTerminal(gctx, func(now time.Time) error {
			return s.PolarAlign.Tick(now)
		}, func() bool {
			st := s.PolarAlign.State()
			return st == polaralign.StateCompleted || st == polaralign.StateError
		})
	})

	if err := group.Wait(); err != nil {
		s.PolarAlign.Stop()
		return runID, fmt.Errorf("polaralign run %s: %w", runID, err)
	}

	return runID, nil
}

/*****************************************************************************************************************/

// tickUntilTerminal drives tick at tickInterval until isTerminal reports true or ctx
// is cancelled, the shared loop body for both RunAutoFocus and RunPolarAlignment.
func tickUntilTerminal(ctx context.Context, tick func(now time.Time) error, isTerminal func() bool) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := tick(now); err != nil {
				return err
			}

			if isTerminal() {
				return nil
			}
		}
	}
}

/*****************************************************************************************************************/
