package projector_test

import (
	"context"
	"testing"
	"time"

	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/domain/event"
	"github.com/basti85goe/geobridge/internal/domain/projector"
	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const geofencyEnterBody = `{"name":"Home:Kitchen","currentLatitude":52.1,"currentLongitude":13.2,"entry":"1","date":1700000000000}`

func normalize(t *testing.T, src event.Source, body string, params event.PathParams) *event.LocationEvent {
	t.Helper()
	e, err := event.Normalize(src, []byte(body), params)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return e
}

func TestProjector(t *testing.T) {
	ctx := context.Background()
	params := event.PathParams{UserID: "alice", DeviceID: "phone1", PlaceType: "home"}

	Convey("Given a projector over an instrumented memory store", t, func() {
		store := statestore.NewMemStore(nil)
		p := projector.New(store)

		Convey("When projecting a Geofency enter event", func() {
			e := normalize(t, event.SourceGeofencyJSON, geofencyEnterBody, params)
			p.Project(ctx, e)

			Convey("Then the place position carries the coordinates at every level", func() {
				v, err := store.GetValue(ctx, "HOME.Home.Position.lat")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 52.1)

				v, err = store.GetValue(ctx, "HOME.Home.Kitchen.Position.lat")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 52.1)

				v, err = store.GetValue(ctx, "HOME.Home.Kitchen.Position.latlong")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "52.1;13.2")
			})

			Convey("Then only the deepest segment carries the presence leaf value", func() {
				v, err := store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, true)

				v, err = store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldBeNil)
			})

			Convey("Then the enter transition is stamped", func() {
				v, err := store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.deviceLastEnter")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, time.UnixMilli(1700000000000).Format(event.TimeFormat))

				v, err = store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.deviceLastLeave")
				So(err, ShouldBeNil)
				So(v, ShouldBeNil)
			})

			Convey("Then the first device becomes the user's primary device", func() {
				v, err := store.GetValue(ctx, statepath.PrimaryDevice("alice"))
				So(err, ShouldBeNil)
				So(v, ShouldEqual, "USERS.alice.DEVICES.phone1")
			})

			Convey("And when the identical event is projected again", func() {
				writes := store.WriteCount()
				p.Project(ctx, e)

				Convey("Then no further writes reach the store", func() {
					So(store.WriteCount(), ShouldEqual, writes)
				})
			})

			Convey("And when a second device reports for the same user", func() {
				second := normalize(t, event.SourceGeofencyJSON, geofencyEnterBody,
					event.PathParams{UserID: "alice", DeviceID: "phone2", PlaceType: "home"})
				p.Project(ctx, second)

				Convey("Then the primary device is not re-elected", func() {
					v, err := store.GetValue(ctx, statepath.PrimaryDevice("alice"))
					So(err, ShouldBeNil)
					So(v, ShouldEqual, "USERS.alice.DEVICES.phone1")
				})
			})
		})

		Convey("When projecting a Locative exit event", func() {
			body := "device=Office&id=phone9&trigger=exit&timestamp=1700000000&latitude=52.5&longitude=13.4"
			e := normalize(t, event.SourceLocativeForm, body,
				event.PathParams{UserID: "bob", DeviceID: "phone9", PlaceType: "work"})
			p.Project(ctx, e)

			Convey("Then the presence leaf reads false", func() {
				v, err := store.GetValue(ctx, "USERS.bob.DEVICES.phone9.WORK.Office.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, false)
			})

			Convey("Then only the leave transition is stamped", func() {
				v, err := store.GetValue(ctx, "USERS.bob.DEVICES.phone9.WORK.Office.deviceLastLeave")
				So(err, ShouldBeNil)
				So(v, ShouldNotBeNil)

				v, err = store.GetValue(ctx, "USERS.bob.DEVICES.phone9.WORK.Office.deviceLastEnter")
				So(err, ShouldBeNil)
				So(v, ShouldBeNil)
			})
		})

		Convey("When presence flips on a later event", func() {
			enter := normalize(t, event.SourceGeofencyJSON, geofencyEnterBody, params)
			p.Project(ctx, enter)

			exitBody := `{"name":"Home:Kitchen","currentLatitude":52.1,"currentLongitude":13.2,"entry":"0","date":1700000100000}`
			exit := normalize(t, event.SourceGeofencyJSON, exitBody, params)
			p.Project(ctx, exit)

			Convey("Then the presence leaf and the leave stamp both update", func() {
				v, err := store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, false)

				v, err = store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.deviceLastLeave")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, time.UnixMilli(1700000100000).Format(event.TimeFormat))
			})
		})
	})

	Convey("Given a projector with hierarchy creation disabled", t, func() {
		store := statestore.NewMemStore(nil)
		p := projector.New(store, projector.WithCreate(false))

		e := normalize(t, event.SourceGeofencyJSON, geofencyEnterBody, params)
		p.Project(ctx, e)

		Convey("Then no nodes are materialized", func() {
			_, err := store.GetNode(ctx, statepath.User("alice"))
			So(err, ShouldWrap, statestore.ErrNotFound)
		})

		Convey("Then leaf values are still written", func() {
			v, err := store.GetValue(ctx, "HOME.Home.Kitchen.Position.lat")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 52.1)
		})

		Convey("Then no primary device is elected without node creation", func() {
			v, err := store.GetValue(ctx, statepath.PrimaryDevice("alice"))
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})
	})
}
