package scan

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// LivenessProbe reports whether a loopback port is bound. *port.Scanner
// implements it.
type LivenessProbe interface {
	IsPortInUse(port int) bool
}

// Fingerprint reports whether host:port speaks ADB. *adb.Fingerprinter
// implements it.
type Fingerprint interface {
	IsADBDevice(ctx context.Context, host string, port int) bool
}

// Options configures a Driver.
type Options struct {
	// Range is the inclusive port range to walk. The zero value selects
	// model.DefaultPortRange().
	Range model.PortRange

	// Workers is the number of ports probed at once. 0 or 1 keeps the
	// scan strictly sequential.
	Workers int

	// Logger receives scan progress at debug/info level. If nil, output
	// is discarded.
	Logger logrus.FieldLogger
}

// Driver walks a port range and yields the ports that host an ADB daemon.
type Driver struct {
	liveness    LivenessProbe
	fingerprint Fingerprint
	rng         model.PortRange
	workers     int
	log         logrus.FieldLogger
}

// NewDriver validates opts and returns a Driver using the given probes.
func NewDriver(liveness LivenessProbe, fingerprint Fingerprint, opts Options) (*Driver, error) {
	if liveness == nil || fingerprint == nil {
		return nil, fmt.Errorf("scan driver requires both a liveness probe and a fingerprint")
	}

	rng := opts.Range
	if rng == (model.PortRange{}) {
		rng = model.DefaultPortRange()
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d", workers)
	}
	if workers == 0 {
		workers = 1
	}

	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &Driver{
		liveness:    liveness,
		fingerprint: fingerprint,
		rng:         rng,
		workers:     workers,
		log:         log,
	}, nil
}

// Range returns the port range the driver walks.
func (d *Driver) Range() model.PortRange {
	return d.rng
}

// Scan walks the whole range and calls onMatch for each ADB port in
// ascending order. It returns ctx.Err() if the scan was cut short by
// cancellation and nil otherwise; probe failures are never errors.
func (d *Driver) Scan(ctx context.Context, onMatch func(port int)) error {
	for port := range d.Ports(ctx) {
		onMatch(port)
	}
	return ctx.Err()
}

// Ports returns the matching ports as a lazy sequence. Ports are probed
// only as the sequence is consumed and are yielded in ascending order.
//
// The sequence can be ranged over once; later iterations yield nothing.
// Breaking out of the loop stops the scan, and every socket opened on
// its behalf is closed before the loop statement completes.
func (d *Driver) Ports(ctx context.Context) iter.Seq[int] {
	var used atomic.Bool
	return func(yield func(int) bool) {
		if used.Swap(true) {
			return
		}

		start := time.Now()
		matches := 0
		counted := func(port int) bool {
			matches++
			d.log.WithField("port", port).Debug("adb endpoint found")
			return yield(port)
		}

		if d.workers > 1 {
			d.parallel(ctx, counted)
		} else {
			d.sequential(ctx, counted)
		}

		d.log.WithFields(logrus.Fields{
			"range":   d.rng.String(),
			"workers": d.workers,
			"matches": matches,
			"elapsed": time.Since(start),
		}).Info("scan finished")
	}
}

// probe runs the two-stage check on one port. Fingerprinting only happens
// once liveness says the port is bound.
func (d *Driver) probe(ctx context.Context, port int) bool {
	if !d.liveness.IsPortInUse(port) {
		return false
	}
	return d.fingerprint.IsADBDevice(ctx, model.LoopbackHost, port)
}

func (d *Driver) sequential(ctx context.Context, yield func(int) bool) {
	for port := d.rng.Low; port <= d.rng.High; port++ {
		if ctx.Err() != nil {
			return
		}
		if d.probe(ctx, port) && !yield(port) {
			return
		}
	}
}

// outcome is one finished port as reported by a pool worker.
type outcome struct {
	port  int
	match bool
}

// parallel probes ports on an ants pool of d.workers goroutines and
// re-sequences the outcomes so yield still sees ascending ports. At most
// d.workers probes are in flight, which bounds the number of open sockets.
func (d *Driver) parallel(ctx context.Context, yield func(int) bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome, d.workers)
	var wg sync.WaitGroup

	pool, err := ants.NewPoolWithFunc(d.workers, func(arg interface{}) {
		defer wg.Done()
		port := arg.(int)
		o := outcome{port: port}
		if ctx.Err() == nil {
			o.match = d.probe(ctx, port)
		}
		select {
		case results <- o:
		case <-ctx.Done():
		}
	})
	if err != nil {
		d.log.WithError(err).Warn("worker pool unavailable, scanning sequentially")
		d.sequential(ctx, yield)
		return
	}
	defer pool.Release()

	go func() {
		defer func() {
			wg.Wait()
			close(results)
		}()
		for port := d.rng.Low; port <= d.rng.High; port++ {
			if ctx.Err() != nil {
				return
			}
			wg.Add(1)
			if err := pool.Invoke(port); err != nil {
				wg.Done()
				return
			}
		}
	}()

	// stop cancels outstanding work and waits until every worker is done,
	// so no probe socket outlives the scan.
	stop := func() {
		cancel()
		for range results {
		}
	}

	// done holds finished ports that cannot be emitted yet because a
	// lower port is still in flight.
	done := make(map[int]bool, d.workers)
	next := d.rng.Low
	for o := range results {
		done[o.port] = o.match
		for {
			match, ok := done[next]
			if !ok {
				break
			}
			delete(done, next)
			port := next
			next++
			if match && !yield(port) {
				stop()
				return
			}
		}
	}
}
