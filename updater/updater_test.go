package updater

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/biadnet/go-biadnet/iblt"
	"github.com/biadnet/go-biadnet/p2p/server"
	"github.com/biadnet/go-biadnet/sql"
	"github.com/biadnet/go-biadnet/store"
)

var testParams = store.ParamsForNetwork("updater-test", 200, 3)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FetchBatch = 4
	return cfg
}

func newStore(t *testing.T, params store.SketchParams) *store.Store {
	t.Helper()
	db := sql.InMemory(sql.WithSchema(store.Schema))
	st, err := store.New(db, params, store.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return st
}

// newClient creates an updater which only sends requests.
func newClient(t *testing.T, h host.Host, st contentStore, clock clockwork.Clock) *Updater {
	t.Helper()
	u, err := New(h, st, testConfig(),
		WithLogger(zaptest.NewLogger(t).Named(h.ID().ShortString())),
		WithClock(clock),
		WithServerOpts(server.WithTimeout(5*time.Second)))
	require.NoError(t, err)
	return u
}

func newUpdater(t *testing.T, h host.Host, st contentStore, clock clockwork.Clock) *Updater {
	t.Helper()
	u := newClient(t, h, st, clock)
	u.Start()
	t.Cleanup(u.Stop)
	require.Eventually(t, func() bool {
		protos := h.Mux().Protocols()
		return slices.Contains(protos, protocol.ID(PollProtocol)) &&
			slices.Contains(protos, protocol.ID(ContentProtocol))
	}, time.Second, 10*time.Millisecond)
	return u
}

func content(from, to int) [][]byte {
	var items [][]byte
	for i := from; i < to; i++ {
		items = append(items, []byte(fmt.Sprintf("content item %d", i)))
	}
	return items
}

func fill(t *testing.T, st *store.Store, items [][]byte) {
	t.Helper()
	for _, data := range items {
		_, err := st.Put(data)
		require.NoError(t, err)
	}
}

func contentIDs(items [][]byte) []iblt.ID {
	ids := make([]iblt.ID, len(items))
	for n, data := range items {
		ids[n] = store.ContentID(data)
	}
	return ids
}

func requireSketchIDs(t *testing.T, st *store.Store, ids []iblt.ID) {
	t.Helper()
	got, err := st.Sketch().Iterate(true).Collect()
	require.NoError(t, err)
	require.ElementsMatch(t, ids, got)
}

func TestSync(t *testing.T) {
	for _, tc := range []struct {
		desc           string
		fromA, toA     int
		fromB, toB     int
		fromAll, toAll int
	}{
		{desc: "overlapping", fromA: 0, toA: 20, fromB: 10, toB: 30, fromAll: 0, toAll: 30},
		{desc: "empty node", fromA: 0, toA: 15, fromB: 0, toB: 0, fromAll: 0, toAll: 15},
		{desc: "same content", fromA: 0, toA: 10, fromB: 0, toB: 10, fromAll: 0, toAll: 10},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			mn := mocknet.New()
			t.Cleanup(func() { mn.Close() })
			clock := clockwork.NewFakeClock()
			var stores []*store.Store
			for _, items := range [][][]byte{
				content(tc.fromA, tc.toA),
				content(tc.fromB, tc.toB),
			} {
				h, err := mn.GenPeer()
				require.NoError(t, err)
				st := newStore(t, testParams)
				fill(t, st, items)
				newUpdater(t, h, st, clock)
				stores = append(stores, st)
			}
			require.NoError(t, mn.LinkAll())
			require.NoError(t, mn.ConnectAllButSelf())

			all := content(tc.fromAll, tc.toAll)
			require.Eventually(t, func() bool {
				if stores[0].Count() == len(all) && stores[1].Count() == len(all) {
					return true
				}
				// trigger another poll round
				clock.Advance(DefaultConfig().PollInterval)
				return false
			}, 10*time.Second, 50*time.Millisecond)
			ids := contentIDs(all)
			for _, st := range stores {
				requireSketchIDs(t, st, ids)
				for n, id := range ids {
					data, err := st.Get(id)
					require.NoError(t, err)
					require.Equal(t, all[n], data)
				}
			}
		})
	}
}

func TestSyncThreeNodes(t *testing.T) {
	mn := mocknet.New()
	t.Cleanup(func() { mn.Close() })
	clock := clockwork.NewFakeClock()
	var stores []*store.Store
	for i := range 3 {
		h, err := mn.GenPeer()
		require.NoError(t, err)
		st := newStore(t, testParams)
		fill(t, st, content(i*10, i*10+10))
		newUpdater(t, h, st, clock)
		stores = append(stores, st)
	}
	require.NoError(t, mn.LinkAll())
	require.NoError(t, mn.ConnectAllButSelf())
	require.Eventually(t, func() bool {
		for _, st := range stores {
			if st.Count() != 30 {
				clock.Advance(DefaultConfig().PollInterval)
				return false
			}
		}
		return true
	}, 10*time.Second, 50*time.Millisecond)
	for _, st := range stores {
		requireSketchIDs(t, st, contentIDs(content(0, 30)))
	}
}

func TestPollServedByMock(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	local := content(0, 2)
	stA := newStore(t, testParams)
	fill(t, stA, local)
	uA := newUpdater(t, hA, stA, clock)

	remote := []byte("remote content")
	remoteID := store.ContentID(remote)
	remoteSketch := iblt.NewWithSeeds(int(testParams.Buckets), testParams.K, testParams.Seed0, testParams.Seed1)
	remoteSketch.Insert(remoteID[:])

	ctrl := gomock.NewController(t)
	stB := NewMockcontentStore(ctrl)
	stB.EXPECT().Tip().Return(remoteID, true).AnyTimes()
	stB.EXPECT().Count().Return(1).AnyTimes()
	stB.EXPECT().Snapshot().DoAndReturn(func() *iblt.Snapshot {
		return remoteSketch.Snapshot(1)
	}).AnyTimes()
	stB.EXPECT().Sketch().DoAndReturn(remoteSketch.Clone).AnyTimes()
	stB.EXPECT().Has(remoteID).Return(true, nil).AnyTimes()
	stB.EXPECT().Get(remoteID).Return(remote, nil).MinTimes(1)
	var stored atomic.Int32
	for _, id := range contentIDs(local) {
		stB.EXPECT().Has(id).Return(false, nil).AnyTimes()
		stB.EXPECT().PutWithID(id, gomock.Any()).DoAndReturn(func(_ iblt.ID, data []byte) error {
			assert.Equal(t, id, store.ContentID(data))
			stored.Add(1)
			return nil
		}).MinTimes(1)
	}
	newUpdater(t, hB, stB, clock)

	// both nodes poll each other upon connecting
	require.NoError(t, mn.ConnectAllButSelf())
	require.Eventually(t, func() bool {
		has, err := stA.Has(remoteID)
		return err == nil && has && stored.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, uA.Poll(context.Background(), hB.ID()))
	require.Equal(t, 3, stA.Count())
}

func TestBadContentRejected(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	stA := newStore(t, testParams)
	fill(t, stA, content(0, 1))
	uA := newClient(t, hA, stA, clock)

	offered := store.ContentID([]byte("offered"))
	remoteSketch := iblt.NewWithSeeds(int(testParams.Buckets), testParams.K, testParams.Seed0, testParams.Seed1)
	for _, id := range contentIDs(content(0, 1)) {
		remoteSketch.Insert(id[:])
	}
	remoteSketch.Insert(offered[:])

	ctrl := gomock.NewController(t)
	stB := NewMockcontentStore(ctrl)
	stB.EXPECT().Tip().Return(iblt.ID{}, false).AnyTimes()
	stB.EXPECT().Count().Return(2).AnyTimes()
	stB.EXPECT().Sketch().DoAndReturn(remoteSketch.Clone).AnyTimes()
	stB.EXPECT().Has(offered).Return(true, nil).AnyTimes()
	stB.EXPECT().Get(offered).Return([]byte("tampered"), nil).Times(1)
	newUpdater(t, hB, stB, clock)

	require.NoError(t, mn.ConnectAllButSelf())
	require.NoError(t, uA.Poll(context.Background(), hB.ID()))
	has, err := stA.Has(offered)
	require.NoError(t, err)
	require.False(t, has)
	require.Equal(t, 1, stA.Count())
}

func TestIncompatibleSketch(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	stA := newStore(t, testParams)
	fill(t, stA, content(0, 3))
	uA := newClient(t, hA, stA, clock)
	stB := newStore(t, store.ParamsForNetwork("another-network", 200, 3))
	fill(t, stB, content(3, 6))
	newUpdater(t, hB, stB, clock)

	require.NoError(t, mn.ConnectAllButSelf())
	err = uA.Poll(context.Background(), hB.ID())
	require.ErrorIs(t, err, &server.ServerError{})
	require.ErrorContains(t, err, iblt.ErrIncompatible.Error())
	require.Equal(t, 3, stA.Count())
}

func TestOverloadedSketch(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()
	params := store.ParamsForNetwork("small", 40, 3)

	stA := newStore(t, params)
	fill(t, stA, content(0, 1))
	uA := newUpdater(t, hA, stA, clock)
	stB := newStore(t, params)
	fill(t, stB, content(1, 41))
	newUpdater(t, hB, stB, clock)

	require.NoError(t, mn.ConnectAllButSelf())
	// the difference can't be decoded at once, but it shrinks with every poll
	require.Eventually(t, func() bool {
		if err := uA.Poll(context.Background(), hB.ID()); err != nil {
			return false
		}
		return stA.Count() == 41 && stB.Count() == 41
	}, 20*time.Second, 10*time.Millisecond)
}

func TestReplyExpiry(t *testing.T) {
	mn, err := mocknet.FullMeshConnected(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	// the peer accepts the poll but never replies
	received := make(chan struct{}, 1)
	release := make(chan struct{})
	hB.SetStreamHandler(protocol.ID(PollProtocol), func(s network.Stream) {
		received <- struct{}{}
		<-release
		s.Reset()
	})

	stA := newStore(t, testParams)
	fill(t, stA, content(0, 1))
	u := newClient(t, hA, stA, clock)

	errCh := make(chan error, 1)
	go func() { errCh <- u.Poll(context.Background(), hB.ID()) }()
	<-received
	require.Equal(t, 1, u.replies.Pending(hB.ID(), ReplyPollContent))
	u.checkExpired()
	require.Equal(t, 1, u.replies.Pending(hB.ID(), ReplyPollContent))
	clock.Advance(testConfig().ReplyTimeout)
	u.checkExpired()
	require.Zero(t, u.replies.Pending(hB.ID(), ReplyPollContent))

	close(release)
	require.Error(t, <-errCh)
	require.Zero(t, u.replies.Pending(hB.ID(), ReplyPollContent))
}

func TestPollNotDelivered(t *testing.T) {
	mn, err := mocknet.FullMeshConnected(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	stA := newStore(t, testParams)
	fill(t, stA, content(0, 1))
	// the peer doesn't serve the poll protocol
	u := newClient(t, hA, stA, clock)

	require.Error(t, u.Poll(context.Background(), hB.ID()))
	require.Zero(t, u.replies.Pending(hB.ID(), ReplyPollContent))
	require.Error(t, u.fetchBatch(context.Background(), hB.ID(), contentIDs(content(1, 2))))
	require.Zero(t, u.replies.Pending(hB.ID(), ReplyContent))
	clock.Advance(testConfig().ReplyTimeout)
	require.Empty(t, u.replies.Check())
}

func TestPollOfferFallback(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	hA, hB := mn.Hosts()[0], mn.Hosts()[1]
	clock := clockwork.NewFakeClock()

	local := content(0, 1)
	stA := newStore(t, testParams)
	fill(t, stA, local)
	uA := newClient(t, hA, stA, clock)
	localID := store.ContentID(local[0])

	// The sketch of the peer decodes to an id it doesn't hold and to the
	// local id which it does hold, as a broken peel would.
	bogus := store.ContentID([]byte("bogus"))
	stored := []byte("stored content")
	storedID := store.ContentID(stored)
	remoteSketch := iblt.NewWithSeeds(int(testParams.Buckets), testParams.K, testParams.Seed0, testParams.Seed1)
	remoteSketch.Insert(bogus[:])

	ctrl := gomock.NewController(t)
	stB := NewMockcontentStore(ctrl)
	stB.EXPECT().Tip().Return(iblt.ID{}, false).AnyTimes()
	stB.EXPECT().Count().Return(1).AnyTimes()
	stB.EXPECT().Sketch().DoAndReturn(remoteSketch.Clone).AnyTimes()
	stB.EXPECT().Has(bogus).Return(false, nil).AnyTimes()
	stB.EXPECT().Has(localID).Return(true, nil).AnyTimes()
	stB.EXPECT().IDs(0, testConfig().MaxOffer).Return([]iblt.ID{storedID}, nil).MinTimes(1)
	stB.EXPECT().Get(storedID).Return(stored, nil).Times(1)
	newUpdater(t, hB, stB, clock)

	require.NoError(t, mn.ConnectAllButSelf())
	require.NoError(t, uA.Poll(context.Background(), hB.ID()))
	has, err := stA.Has(storedID)
	require.NoError(t, err)
	require.True(t, has)
	has, err = stA.Has(bogus)
	require.NoError(t, err)
	require.False(t, has)

	// nothing new is offered, the stored id is already held
	require.NoError(t, uA.Poll(context.Background(), hB.ID()))
	require.Equal(t, 2, stA.Count())
}

func TestFallbackPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockcontentStore(ctrl)
	cfg := testConfig()
	cfg.MaxOffer = 2
	u, err := New(nil, st, cfg)
	require.NoError(t, err)
	ids := contentIDs(content(0, 3))
	st.EXPECT().IDs(0, 2).Return(ids[:2], nil).Times(2)
	st.EXPECT().IDs(2, 2).Return(ids[2:], nil).Times(1)

	const p = peer.ID("peer")
	for _, expect := range [][]iblt.ID{ids[:2], ids[2:], ids[:2]} {
		got, err := u.fallbackOffer(p)
		require.NoError(t, err)
		require.Equal(t, expect, got)
	}
	u.resetFallback(p)
	require.Empty(t, u.fallback)
}

func TestPollEmptyStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := NewMockcontentStore(ctrl)
	st.EXPECT().Tip().Return(iblt.ID{}, false)
	mn, err := mocknet.FullMeshConnected(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() })
	u, err := New(mn.Hosts()[0], st, testConfig())
	require.NoError(t, err)
	// nothing to announce, nothing is sent
	require.NoError(t, u.Poll(context.Background(), mn.Hosts()[1].ID()))
	require.Zero(t, u.replies.Pending(mn.Hosts()[1].ID(), ReplyPollContent))
}

func TestConfigValidation(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		modify func(*Config)
	}{
		{desc: "poll interval", modify: func(c *Config) { c.PollInterval = 0 }},
		{desc: "max offer", modify: func(c *Config) { c.MaxOffer = MaxOffer + 1 }},
		{desc: "fetch batch", modify: func(c *Config) { c.FetchBatch = 0 }},
		{desc: "concurrency", modify: func(c *Config) { c.MaxConcurrency = 0 }},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			_, err := New(nil, nil, cfg)
			require.Error(t, err)
		})
	}
}
