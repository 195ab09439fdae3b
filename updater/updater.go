// Package updater keeps the local content in sync with the connected peers.
//
// A node polls its peers with a sketch of its content identifiers. The polled
// peer subtracts the received sketch from its own one and decodes the
// difference: the identifiers only it holds are offered back to the poller,
// which fetches them, and the identifiers only the poller holds are fetched
// by the polled peer.
package updater

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/biadnet/go-biadnet/codec"
	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/p2p/server"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/store"
	"github.com/biadnet/go-biadnet/timeout"
)

const (
	// PollProtocol is the protocol used to exchange sketches.
	PollProtocol = "/biadnet/poll/1"
	// ContentProtocol is the protocol used to fetch content payloads.
	ContentProtocol = "/biadnet/content/1"

	maxPollRequest    = 64 + iblt.MaxBuckets*(iblt.IDSize+12)
	maxContentRequest = 16 + MaxBatch*iblt.IDSize
	maxResponseData   = 64 << 20
)

// ReplyKind is a kind of reply expected from a peer.
type ReplyKind int

const (
	ReplyPollContent ReplyKind = iota
	ReplyContent
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyPollContent:
		return "poll"
	case ReplyContent:
		return "content"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Config is the updater configuration.
type Config struct {
	PollInterval time.Duration `mapstructure:"poll-interval"`
	ReplyTimeout time.Duration `mapstructure:"reply-timeout"`
	// MaxOffer limits the number of identifiers offered in a single poll reply.
	MaxOffer int `mapstructure:"max-offer"`
	// FetchBatch is the number of payloads requested at once.
	FetchBatch int `mapstructure:"fetch-batch"`
	// MaxConcurrency limits the number of concurrent polls and fetches.
	MaxConcurrency int `mapstructure:"max-concurrency"`
}

// DefaultConfig returns the default updater configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Minute,
		ReplyTimeout:   30 * time.Second,
		MaxOffer:       1024,
		FetchBatch:     64,
		MaxConcurrency: 16,
	}
}

func (cfg Config) validate() error {
	switch {
	case cfg.PollInterval <= 0:
		return errors.New("poll interval must be positive")
	case cfg.MaxOffer <= 0 || cfg.MaxOffer > MaxOffer:
		return fmt.Errorf("max offer must be in range 1..%d", MaxOffer)
	case cfg.FetchBatch <= 0 || cfg.FetchBatch > MaxBatch:
		return fmt.Errorf("fetch batch must be in range 1..%d", MaxBatch)
	case cfg.MaxConcurrency <= 0:
		return errors.New("max concurrency must be positive")
	}
	return nil
}

// Opt is an option for the Updater.
type Opt func(*Updater)

// WithLogger specifies the logger for the Updater.
func WithLogger(logger *zap.Logger) Opt {
	return func(u *Updater) {
		u.logger = logger
	}
}

// WithClock specifies the clock for the Updater.
func WithClock(clock clockwork.Clock) Opt {
	return func(u *Updater) {
		u.clock = clock
	}
}

// WithServerOpts specifies the options for the request servers.
func WithServerOpts(opts ...server.Opt) Opt {
	return func(u *Updater) {
		u.serverOpts = append(u.serverOpts, opts...)
	}
}

type pull struct {
	peer peer.ID
	ids  []iblt.ID
}

// Updater polls the peers and serves their polls.
type Updater struct {
	logger     *zap.Logger
	clock      clockwork.Clock
	cfg        Config
	h          host.Host
	store      contentStore
	replies    *timeout.Tracker[ReplyKind]
	serverOpts []server.Opt
	pollSrv    *server.Server
	contentSrv *server.Server
	notifiee   *network.NotifyBundle
	connected  chan peer.ID
	pulls      chan pull

	mu       sync.Mutex
	inflight map[peer.ID]struct{}
	// fallback is the offset of the next page of ids offered to the peer
	fallback map[peer.ID]int

	cancel  context.CancelFunc
	eg      errgroup.Group
	start   sync.Once
	running atomic.Bool
}

// New creates an Updater for the content store.
func New(h host.Host, st contentStore, cfg Config, opts ...Opt) (*Updater, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	u := &Updater{
		logger:    zap.NewNop(),
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
		h:         h,
		store:     st,
		connected: make(chan peer.ID, 64),
		pulls:     make(chan pull, 64),
		inflight:  make(map[peer.ID]struct{}),
		fallback:  make(map[peer.ID]int),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.replies = timeout.New(cfg.ReplyTimeout, timeout.WithClock[ReplyKind](u.clock))
	u.pollSrv = server.New(h, PollProtocol, server.WrapHandler(u.handlePoll),
		append(u.serverOpts,
			server.WithLog(u.logger),
			server.WithRequestSizeLimit(maxPollRequest))...)
	u.contentSrv = server.New(h, ContentProtocol, server.WrapHandler(u.handleContent),
		append(u.serverOpts,
			server.WithLog(u.logger),
			server.WithRequestSizeLimit(maxContentRequest))...)
	u.notifiee = &network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			select {
			case u.connected <- c.RemotePeer():
			default:
				// the peer is polled on the next tick
			}
		},
		DisconnectedF: func(n network.Network, c network.Conn) {
			p := c.RemotePeer()
			if n.Connectedness(p) != network.Connected {
				u.replies.Forget(p)
				u.resetFallback(p)
			}
		},
	}
	return u, nil
}

// Start starts serving the peers and polling them.
func (u *Updater) Start() {
	u.start.Do(func() {
		var ctx context.Context
		ctx, u.cancel = context.WithCancel(context.Background())
		u.h.Network().Notify(u.notifiee)
		u.eg.Go(func() error { return u.pollSrv.Run(ctx) })
		u.eg.Go(func() error { return u.contentSrv.Run(ctx) })
		u.eg.Go(func() error { return u.run(ctx) })
		u.running.Store(true)
	})
}

// Stop stops the Updater and waits for it to finish.
func (u *Updater) Stop() {
	u.running.Store(false)
	u.h.Network().StopNotify(u.notifiee)
	if u.cancel != nil {
		u.cancel()
	}
	if err := u.eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		u.logger.Error("updater terminated with an error", zap.Error(err))
	}
}

func (u *Updater) run(ctx context.Context) error {
	ticker := u.clock.NewTicker(u.cfg.PollInterval)
	defer ticker.Stop()
	var eg errgroup.Group
	eg.SetLimit(u.cfg.MaxConcurrency)
	defer eg.Wait()
	pollAll := func() {
		for _, p := range u.h.Network().Peers() {
			eg.Go(func() error {
				u.logPollError(u.Poll(ctx, p), p)
				return nil
			})
		}
	}
	pollAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-u.connected:
			eg.Go(func() error {
				u.logPollError(u.Poll(ctx, p), p)
				return nil
			})
		case req := <-u.pulls:
			eg.Go(func() error {
				if err := u.fetch(ctx, req.peer, req.ids); err != nil && ctx.Err() == nil {
					u.logger.Debug("failed to fetch content", zap.Stringer("peer", req.peer), zap.Error(err))
				}
				return nil
			})
		case <-ticker.Chan():
			u.checkExpired()
			pollAll()
		}
	}
}

func (u *Updater) logPollError(err error, p peer.ID) {
	if err != nil && !errors.Is(err, context.Canceled) {
		u.logger.Debug("poll failed", zap.Stringer("peer", p), zap.Error(err))
	}
}

func (u *Updater) checkExpired() {
	for _, e := range u.replies.Check(ReplyPollContent, ReplyContent) {
		expiredReplies.WithLabelValues(e.Kind.String()).Add(float64(e.Remaining))
		u.logger.Info("peer didn't reply in time",
			zap.Stringer("peer", e.Peer),
			zap.Stringer("kind", e.Kind),
			zap.Int("remaining", e.Remaining))
	}
}

func (u *Updater) beginPoll(p peer.ID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, found := u.inflight[p]; found {
		return false
	}
	u.inflight[p] = struct{}{}
	return true
}

func (u *Updater) endPoll(p peer.ID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.inflight, p)
}

// Poll sends the local sketch to the peer and fetches the content it offers.
// Nothing is sent while the local store is empty. Concurrent polls of the same
// peer are skipped.
func (u *Updater) Poll(ctx context.Context, p peer.ID) error {
	tip, ok := u.store.Tip()
	if !ok {
		return nil
	}
	if !u.beginPoll(p) {
		return nil
	}
	defer u.endPoll(p)
	snapshot := u.store.Snapshot()
	req := &PollContent{Tip: tip, Sketch: *snapshot, Size: snapshot.Count}
	u.replies.Expect(p, 1, ReplyPollContent)
	resp, err := u.pollSrv.Request(ctx, p, codec.MustEncode(req))
	u.replies.Received(p, ReplyPollContent)
	if err != nil {
		pollFailed.Inc()
		return fmt.Errorf("poll %s: %w", p, err)
	}
	var reply PollReply
	if err := codec.Decode(resp, &reply); err != nil {
		pollFailed.Inc()
		return fmt.Errorf("poll reply from %s: %w", p, err)
	}
	if reply.Incomplete {
		pollOverload.Inc()
		u.logger.Info("peer couldn't decode the full difference",
			zap.Stringer("peer", p),
			zap.Uint32("peer_size", reply.Size),
			zap.Int("offered", len(reply.Offer)))
	} else {
		pollOK.Inc()
	}
	u.logger.Debug("polled peer",
		zap.Stringer("peer", p),
		zap.Stringer("peer_tip", reply.Tip),
		zap.Array("offer", iblt.IDs(reply.Offer)))
	return u.fetch(ctx, p, reply.Offer)
}

func (u *Updater) fetch(ctx context.Context, p peer.ID, ids []iblt.ID) error {
	var want []iblt.ID
	for _, id := range ids {
		has, err := u.store.Has(id)
		if err != nil {
			return err
		}
		if !has {
			want = append(want, id)
		}
	}
	for batch := range slices.Chunk(want, u.cfg.FetchBatch) {
		if err := u.fetchBatch(ctx, p, batch); err != nil {
			return err
		}
	}
	return nil
}

func (u *Updater) fetchBatch(ctx context.Context, p peer.ID, ids []iblt.ID) error {
	u.replies.Expect(p, 1, ReplyContent)
	resp, err := u.contentSrv.Request(ctx, p, codec.MustEncode(&ContentRequest{IDs: ids}))
	u.replies.Received(p, ReplyContent)
	if err != nil {
		return fmt.Errorf("request content from %s: %w", p, err)
	}
	var cr ContentResponse
	if err := codec.Decode(resp, &cr); err != nil {
		return fmt.Errorf("content response from %s: %w", p, err)
	}
	requested := make(map[iblt.ID]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	for _, item := range cr.Items {
		if _, found := requested[item.ID]; !found {
			fetchedMismatch.Inc()
			u.logger.Debug("unrequested content", zap.Stringer("peer", p), zap.Stringer("id", item.ID))
			continue
		}
		delete(requested, item.ID)
		switch err := u.store.PutWithID(item.ID, item.Data); {
		case errors.Is(err, store.ErrContentMismatch):
			fetchedMismatch.Inc()
			u.logger.Warn("peer sent bad content", zap.Stringer("peer", p), zap.Stringer("id", item.ID))
		case err != nil:
			return err
		default:
			fetchedOK.Inc()
		}
	}
	fetchedMissing.Add(float64(len(requested)))
	return nil
}

func (u *Updater) handlePoll(ctx context.Context, req []byte) ([]byte, error) {
	if !u.running.Load() {
		return nil, errors.New("updater not running")
	}
	peerID, found := server.ContextPeerID(ctx)
	if !found {
		panic("BUG: no peer ID found in the handler")
	}
	var poll PollContent
	if err := codec.Decode(req, &poll); err != nil {
		return nil, err
	}
	remote, err := iblt.FromSnapshot(&poll.Sketch)
	if err != nil {
		return nil, err
	}
	diff := u.store.Sketch()
	if err := diff.Subtract(remote); err != nil {
		servedIncompatible.Inc()
		return nil, err
	}
	offer, offerIncomplete := decodeUpTo(diff.Iterate(true), u.cfg.MaxOffer)
	wanted, wantedIncomplete := decodeUpTo(diff.ConsumeIterate(false), u.cfg.MaxOffer)
	// An identifier hashing to the same bucket more than once may leave a
	// bucket that looks pure with the wrong sign, so the decoded ids are
	// checked against the store.
	offer, offerDropped, err := u.filterHeld(offer, true)
	if err != nil {
		return nil, err
	}
	wanted, wantedDropped, err := u.filterHeld(wanted, false)
	if err != nil {
		return nil, err
	}
	var reply PollReply
	reply.Tip, _ = u.store.Tip()
	reply.Size = uint32(u.store.Count())
	reply.Offer = offer
	reply.Incomplete = offerIncomplete || wantedIncomplete || offerDropped || wantedDropped
	if reply.Incomplete {
		servedIncomplete.Inc()
		if len(reply.Offer) == 0 {
			if reply.Offer, err = u.fallbackOffer(peerID); err != nil {
				return nil, err
			}
		}
	} else {
		servedOK.Inc()
		u.resetFallback(peerID)
	}
	u.logger.Debug("served poll",
		zap.Stringer("peer", peerID),
		zap.Uint32("peer_size", poll.Size),
		zap.Int("offered", len(reply.Offer)),
		zap.Int("wanted", len(wanted)),
		zap.Bool("incomplete", reply.Incomplete))
	if len(wanted) != 0 {
		select {
		case u.pulls <- pull{peer: peerID, ids: wanted}:
		default:
			u.logger.Debug("fetch queue full", zap.Stringer("peer", peerID))
		}
	}
	return codec.Encode(&reply)
}

// filterHeld keeps the ids which are present in the store if held is true,
// and the ones which are absent otherwise. dropped is set if any id was
// filtered out.
func (u *Updater) filterHeld(ids []iblt.ID, held bool) (kept []iblt.ID, dropped bool, err error) {
	kept = ids[:0]
	for _, id := range ids {
		has, err := u.store.Has(id)
		if err != nil {
			return nil, false, err
		}
		if has == held {
			kept = append(kept, id)
		} else {
			dropped = true
		}
	}
	return kept, dropped, nil
}

// fallbackOffer pages through the stored ids, one page per poll, when the
// difference with the peer can't be decoded. The requester only fetches the
// ids it lacks, so the difference shrinks over the polls.
func (u *Updater) fallbackOffer(p peer.ID) ([]iblt.ID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	offset := u.fallback[p]
	ids, err := u.store.IDs(offset, u.cfg.MaxOffer)
	if err != nil {
		return nil, err
	}
	if len(ids) < u.cfg.MaxOffer {
		delete(u.fallback, p)
	} else {
		u.fallback[p] = offset + len(ids)
	}
	return ids, nil
}

func (u *Updater) resetFallback(p peer.ID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.fallback, p)
}

// decodeUpTo collects at most limit identifiers from the sequence.
// incomplete is set if the sequence failed before reaching the limit.
func decodeUpTo(seq iblt.Seq, limit int) (ids []iblt.ID, incomplete bool) {
	for id, err := range seq {
		if err != nil {
			return ids, true
		}
		if len(ids) == limit {
			break
		}
		ids = append(ids, id)
	}
	return ids, false
}

func (u *Updater) handleContent(_ context.Context, req []byte) ([]byte, error) {
	if !u.running.Load() {
		return nil, errors.New("updater not running")
	}
	var cr ContentRequest
	if err := codec.Decode(req, &cr); err != nil {
		return nil, err
	}
	var (
		resp ContentResponse
		size int
	)
	for _, id := range cr.IDs {
		data, err := u.store.Get(id)
		switch {
		case errors.Is(err, sql.ErrNotFound):
			continue
		case err != nil:
			return nil, err
		}
		if size+len(data) > maxResponseData {
			break
		}
		size += len(data)
		resp.Items = append(resp.Items, ContentItem{ID: id, Data: data})
	}
	return codec.Encode(&resp)
}
