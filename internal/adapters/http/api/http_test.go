package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/basti85goe/geobridge/internal/adapters/http/api"
	"github.com/basti85goe/geobridge/internal/adapters/relay"
	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/credentials"
	"github.com/basti85goe/geobridge/internal/domain/projector"
	"github.com/basti85goe/geobridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	_ = logger.Init()
}

const geofencyBody = `{"name":"Home:Kitchen","currentLatitude":52.1,"currentLongitude":13.2,"entry":"1","date":1700000000000}`

func newBridge(t *testing.T, rel api.Relay) (*httptest.Server, *statestore.MemStore) {
	t.Helper()

	store := statestore.NewMemStore(nil)
	reg := credentials.NewRegistry(credentials.WithCost(bcrypt.MinCost))
	if err := reg.Provision(context.Background(), "geofence", "webhook", "s3cret"); err != nil {
		t.Fatalf("provision: %v", err)
	}

	srv := api.NewServer(api.Dependencies{
		Checker:   reg,
		Projector: projector.New(store),
		Relay:     rel,
		UserGroup: "geofence",
	})
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, store
}

func post(t *testing.T, url, userAgent, contentType, body string, auth func(*http.Request)) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if auth != nil {
		auth(req)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func withAuth(r *http.Request) {
	r.SetBasicAuth("webhook", "s3cret")
}

func TestWebhookHandler(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running webhook bridge", t, func() {
		ts, store := newBridge(t, nil)

		Convey("When posting a Geofency JSON enter event", func() {
			resp, body := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, withAuth)

			Convey("Then the response is exactly 200 OK", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, "OK")
			})

			Convey("Then the event is projected into the state tree", func() {
				v, err := store.GetValue(ctx, "HOME.Home.Position.lat")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 52.1)

				v, err = store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, true)
			})

			Convey("And when the same request is repeated", func() {
				writes := store.WriteCount()
				resp, body := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, withAuth)

				Convey("Then it still answers 200 OK without new writes", func() {
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					So(body, ShouldEqual, "OK")
					So(store.WriteCount(), ShouldEqual, writes)
				})
			})
		})

		Convey("When posting a Locative exit event", func() {
			form := "device=Office&id=ignored&trigger=exit&timestamp=1700000000&latitude=52.5&longitude=13.4"
			resp, body := post(t, ts.URL+"/bob/phone9/work", "Locative/4.1", "application/x-www-form-urlencoded", form, withAuth)

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "OK")

			v, err := store.GetValue(ctx, "USERS.bob.DEVICES.phone9.WORK.Office.devicePresence")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("When the User-Agent is unknown", func() {
			resp, body := post(t, ts.URL+"/alice/phone1/HOME", "SomethingElse/1.0", "application/json", geofencyBody, withAuth)

			Convey("Then the request fails and nothing is written", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(body, ShouldEqual, "Request error")
				So(store.WriteCount(), ShouldEqual, 0)
			})
		})

		Convey("When the method is GET", func() {
			resp, err := http.Get(ts.URL + "/alice/phone1/HOME")
			So(err, ShouldBeNil)
			b, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			Convey("Then the request fails without store interaction", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(string(b), ShouldEqual, "Request error")
				So(store.WriteCount(), ShouldEqual, 0)
			})
		})

		Convey("When too few path parameters remain", func() {
			resp, body := post(t, ts.URL+"/alice/phone1", "Geofency/5.0", "application/json", geofencyBody, withAuth)
			So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
			So(body, ShouldEqual, "Request error")
		})

		Convey("When no credentials accompany the request", func() {
			resp, body := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, nil)

			Convey("Then the request fails and nothing is written", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(body, ShouldEqual, "Request error")
				So(store.WriteCount(), ShouldEqual, 0)
			})
		})

		Convey("When authenticating with the basic-auth header", func() {
			resp, body := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody,
				func(r *http.Request) { r.SetBasicAuth("webhook", "s3cret") })
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "OK")
		})

		Convey("When the basic-auth header carries wrong credentials", func() {
			resp, body := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody,
				func(r *http.Request) { r.SetBasicAuth("webhook", "wrong") })

			Convey("Then the response is an empty 403", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
				So(body, ShouldEqual, "")
			})
		})

		Convey("When credentials ride in the URL", func() {
			resp, body := post(t, ts.URL+"/webhook/s3cret/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, nil)

			Convey("Then they are consumed and the event projects", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body, ShouldEqual, "OK")

				v, err := store.GetValue(ctx, "USERS.alice.DEVICES.phone1.HOME.Home.Kitchen.devicePresence")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, true)
			})
		})

		Convey("When URL credentials are wrong", func() {
			resp, body := post(t, ts.URL+"/webhook/wrong/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			So(body, ShouldEqual, "")
		})

		Convey("When scraping the metrics endpoint", func() {
			resp, err := http.Get(ts.URL + "/metrics")
			So(err, ShouldBeNil)
			b, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(b), ShouldContainSubstring, "geobridge_")
		})
	})

	Convey("Given a bridge with an active relay", t, func() {
		received := make(chan string, 1)
		target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received <- r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer target.Close()

		ts, _ := newBridge(t, relay.New(target.URL))

		Convey("When a recognized webhook arrives", func() {
			resp, _ := post(t, ts.URL+"/alice/phone1/HOME", "Geofency/5.0", "application/json", geofencyBody, withAuth)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("Then the raw request reaches the relay target", func() {
				select {
				case path := <-received:
					So(path, ShouldEqual, "/alice/phone1/HOME")
				case <-time.After(2 * time.Second):
					t.Fatal("relay request never arrived")
				}
			})
		})
	})
}
