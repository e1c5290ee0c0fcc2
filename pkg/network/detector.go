// pkg/network/detector.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-facebreak/pkg/logging"
	"github.com/opd-ai/go-facebreak/pkg/tracking"
	"github.com/opd-ai/go-facebreak/pkg/validation"
)

// ErrNoFace is returned by Poll when the detector answered without a face
var ErrNoFace = errors.New("no face detected")

// DetectorClient polls an HTTP landmark detector and posts every detection
// into a session mailbox. Requests are issued one at a time; a slow detector
// lowers the poll rate instead of stacking calls.
//
// The detector answers GET with a JSON tracking.Detection, or 204 when no
// face is in view.
type DetectorClient struct {
	url      string
	http     *http.Client
	breaker  *Breaker
	mailbox  *tracking.Mailbox
	interval time.Duration
	logger   *logging.Logger

	right, left int

	polls    atomic.Uint64
	failures atomic.Uint64
	lastOK   atomic.Int64
}

// DetectorOptions configures a DetectorClient
type DetectorOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// keypoint indices the session reads; both must be present
	RightKeypoint int
	LeftKeypoint  int
	Logger        *logging.Logger
}

// NewDetectorClient creates a poller for the detector at url
func NewDetectorClient(url string, breaker *Breaker, mailbox *tracking.Mailbox, opts DetectorOptions) *DetectorClient {
	if opts.Interval <= 0 {
		opts.Interval = 33 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.RightKeypoint == 0 && opts.LeftKeypoint == 0 {
		opts.RightKeypoint, opts.LeftKeypoint = tracking.RightMouthCorner, tracking.LeftMouthCorner
	}

	return &DetectorClient{
		url:      url,
		http:     &http.Client{Timeout: opts.Timeout},
		breaker:  breaker,
		mailbox:  mailbox,
		interval: opts.Interval,
		logger:   opts.Logger.With("component", "detector"),
		right:    opts.RightKeypoint,
		left:     opts.LeftKeypoint,
	}
}

// Run polls until ctx is cancelled
func (d *DetectorClient) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info(ctx, "detector polling started", "url", d.url, "interval", d.interval.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := d.Poll(ctx)
			switch {
			case err == nil, errors.Is(err, ErrNoFace):
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				d.logger.Debug(ctx, "detector poll failed", "error", err.Error())
			}
		}
	}
}

// Poll fetches one detection and posts it to the mailbox
func (d *DetectorClient) Poll(ctx context.Context) error {
	d.polls.Add(1)

	var det tracking.Detection
	var noFace bool
	err := d.breaker.Execute(ctx, func() error {
		var err error
		det, noFace, err = d.fetch(ctx)
		return err
	})
	if err != nil {
		d.failures.Add(1)
		return err
	}
	d.lastOK.Store(time.Now().UnixNano())
	if noFace {
		return ErrNoFace
	}

	if err := validation.ValidateDetection(det); err != nil {
		return fmt.Errorf("detector sent an invalid detection: %w", err)
	}
	if err := validation.ValidateKeypointIndices(det, d.right, d.left); err != nil {
		return fmt.Errorf("detector sent an invalid detection: %w", err)
	}
	if det.Timestamp.IsZero() {
		det.Timestamp = time.Now()
	}
	d.mailbox.Post(det)
	return nil
}

// fetch performs the HTTP call. Transport, status and decode errors count as
// breaker failures; a 204 does not.
func (d *DetectorClient) fetch(ctx context.Context) (tracking.Detection, bool, error) {
	var det tracking.Detection

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return det, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return det, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return det, true, nil
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, io.LimitReader(resp.Body, validation.MaxMessageSize))
		return det, false, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, validation.MaxMessageSize)
	if err := json.NewDecoder(body).Decode(&det); err != nil {
		return det, false, fmt.Errorf("decode detection: %w", err)
	}
	return det, false, nil
}

// Polls returns the number of poll attempts
func (d *DetectorClient) Polls() uint64 {
	return d.polls.Load()
}

// Failures returns the number of failed polls, open-circuit refusals included
func (d *DetectorClient) Failures() uint64 {
	return d.failures.Load()
}

// LastSuccess returns when the detector last answered; zero if never
func (d *DetectorClient) LastSuccess() time.Time {
	ns := d.lastOK.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Breaker returns the breaker guarding the detector
func (d *DetectorClient) Breaker() *Breaker {
	return d.breaker
}
