package statestore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestMemStoreNodes(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty memory store", t, func() {
		store := statestore.NewMemStore(nil)

		Convey("When creating a node", func() {
			created, err := store.CreateNodeIfAbsent(ctx, "USERS", statepath.KindChannel, "USERS")

			Convey("Then it reports created and is readable", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)

				n, err := store.GetNode(ctx, "USERS")
				So(err, ShouldBeNil)
				So(n.Kind, ShouldEqual, statepath.KindChannel)
				So(n.Name, ShouldEqual, "USERS")
			})

			Convey("And creating it again is a no-op", func() {
				again, err := store.CreateNodeIfAbsent(ctx, "USERS", statepath.KindChannel, "USERS")
				So(err, ShouldBeNil)
				So(again, ShouldBeFalse)
			})
		})

		Convey("When reading a missing node", func() {
			_, err := store.GetNode(ctx, "nothing.here")
			So(err, ShouldWrap, statestore.ErrNotFound)
		})

		Convey("When extending a node name", func() {
			_, err := store.CreateNodeIfAbsent(ctx, "USERS.alice", statepath.KindDevice, "alice")
			So(err, ShouldBeNil)

			So(store.ExtendNode(ctx, "USERS.alice", "Alice M."), ShouldBeNil)
			n, err := store.GetNode(ctx, "USERS.alice")
			So(err, ShouldBeNil)
			So(n.Name, ShouldEqual, "Alice M.")
		})

		Convey("When extending a missing node", func() {
			So(store.ExtendNode(ctx, "missing", "x"), ShouldWrap, statestore.ErrNotFound)
		})
	})
}

func TestMemStoreValues(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store", t, func() {
		store := statestore.NewMemStore(nil)

		Convey("When a value has never been written", func() {
			v, err := store.GetValue(ctx, "HOME.Home.Position.lat")
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})

		Convey("When writing and reading values", func() {
			So(store.SetValue(ctx, "HOME.Home.Position.lat", 52.1, true), ShouldBeNil)
			So(store.SetValue(ctx, "HOME.Home.presence", true, true), ShouldBeNil)

			lat, err := store.GetValue(ctx, "HOME.Home.Position.lat")
			So(err, ShouldBeNil)
			So(lat, ShouldEqual, 52.1)

			So(store.WriteCount(), ShouldEqual, 2)
		})

		Convey("When enumerating by pattern", func() {
			So(store.SetValue(ctx, "USERS.a.Config.primaryDevice", "USERS.a.DEVICES.d1", false), ShouldBeNil)
			So(store.SetValue(ctx, "USERS.b.Config.primaryDevice", "USERS.b.DEVICES.d2", false), ShouldBeNil)
			So(store.SetValue(ctx, "USERS.a.Position.lat", 1.0, true), ShouldBeNil)

			m, err := store.Enumerate(ctx, "USERS.*.Config.primaryDevice")
			So(err, ShouldBeNil)
			So(len(m), ShouldEqual, 2)
			So(m["USERS.a.Config.primaryDevice"], ShouldEqual, "USERS.a.DEVICES.d1")
		})

		Convey("When enumerating with a degenerate pattern", func() {
			_, err := store.Enumerate(ctx, "USERS..primaryDevice")
			So(err, ShouldWrap, statestore.ErrInvalidPattern)
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)
			So(store.SetValue(ctx, "x", 1, true), ShouldWrap, statestore.ErrClosed)
			_, err := store.GetValue(ctx, "x")
			So(err, ShouldWrap, statestore.ErrClosed)
		})
	})
}

func TestMemStoreSubscription(t *testing.T) {
	Convey("Given a store with a notifier", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		notifier := statestore.NewNotifier(logger.Get().Named("test"))
		defer func() { _ = notifier.Close() }()
		store := statestore.NewMemStore(notifier)

		var mu sync.Mutex
		var got []statestore.Change
		err := store.Subscribe(ctx, "USERS.*.DEVICES.*.**.devicePresence", func(_ context.Context, ch statestore.Change) {
			mu.Lock()
			got = append(got, ch)
			mu.Unlock()
		})
		So(err, ShouldBeNil)

		Convey("When subscribing with a degenerate pattern", func() {
			err := store.Subscribe(ctx, "", func(context.Context, statestore.Change) {})
			So(err, ShouldWrap, statestore.ErrInvalidPattern)
		})

		Convey("When writing matching and non-matching paths", func() {
			So(store.SetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence", true, true), ShouldBeNil)
			So(store.SetValue(ctx, "HOME.Home.Kitchen.presence", true, true), ShouldBeNil)
			So(store.SetValue(ctx, "USERS.alice.DEVICES.phone1.Position.lat", 1.0, true), ShouldBeNil)

			Convey("Then only the matching change is delivered", func() {
				deadline := time.Now().Add(2 * time.Second)
				for {
					mu.Lock()
					n := len(got)
					mu.Unlock()
					if n > 0 || time.Now().After(deadline) {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}

				mu.Lock()
				defer mu.Unlock()
				So(len(got), ShouldEqual, 1)
				So(got[0].Path, ShouldEqual, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence")
				So(got[0].Val, ShouldEqual, true)
				So(got[0].Ack, ShouldBeTrue)
			})
		})
	})
}
