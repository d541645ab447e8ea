package statestore_test

import (
	"context"
	"testing"

	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/domain/statepath"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory badger store", t, func() {
		store, err := statestore.OpenBadger(nil, statestore.WithInMemory(true))
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		Convey("When creating nodes", func() {
			created, err := store.CreateNodeIfAbsent(ctx, "USERS.alice", statepath.KindDevice, "alice")
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			Convey("Then re-creation is a no-op", func() {
				again, err := store.CreateNodeIfAbsent(ctx, "USERS.alice", statepath.KindDevice, "alice")
				So(err, ShouldBeNil)
				So(again, ShouldBeFalse)
			})

			Convey("Then the node reads back with kind and name", func() {
				n, err := store.GetNode(ctx, "USERS.alice")
				So(err, ShouldBeNil)
				So(n.Kind, ShouldEqual, statepath.KindDevice)
				So(n.Name, ShouldEqual, "alice")
			})

			Convey("Then ExtendNode renames it", func() {
				So(store.ExtendNode(ctx, "USERS.alice", "Alice"), ShouldBeNil)
				n, err := store.GetNode(ctx, "USERS.alice")
				So(err, ShouldBeNil)
				So(n.Name, ShouldEqual, "Alice")
			})
		})

		Convey("When reading a missing node", func() {
			_, err := store.GetNode(ctx, "missing")
			So(err, ShouldWrap, statestore.ErrNotFound)
		})

		Convey("When writing values", func() {
			So(store.SetValue(ctx, "HOME.Home.Position.lat", 52.1, true), ShouldBeNil)
			So(store.SetValue(ctx, "HOME.Home.presenceUsers", []string{"alice"}, true), ShouldBeNil)

			Convey("Then scalars survive the JSON round trip as float64", func() {
				v, err := store.GetValue(ctx, "HOME.Home.Position.lat")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 52.1)
				So(statestore.ValueEqual(v, 52.1), ShouldBeTrue)
			})

			Convey("Then lists compare equal across the round trip", func() {
				v, err := store.GetValue(ctx, "HOME.Home.presenceUsers")
				So(err, ShouldBeNil)
				So(statestore.ValueEqual(v, []string{"alice"}), ShouldBeTrue)
			})

			Convey("Then absent values read as nil", func() {
				v, err := store.GetValue(ctx, "nothing")
				So(err, ShouldBeNil)
				So(v, ShouldBeNil)
			})

			Convey("Then enumeration filters by pattern", func() {
				m, err := store.Enumerate(ctx, "HOME.*.Position.lat")
				So(err, ShouldBeNil)
				So(len(m), ShouldEqual, 1)
				So(m["HOME.Home.Position.lat"], ShouldEqual, 52.1)
			})
		})
	})
}
