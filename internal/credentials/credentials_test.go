package credentials_test

import (
	"context"
	"testing"

	"github.com/basti85goe/geobridge/internal/credentials"
	"github.com/basti85goe/geobridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	_ = logger.Init()
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty credential registry", t, func() {
		reg := credentials.NewRegistry(credentials.WithCost(bcrypt.MinCost))

		Convey("When provisioning a group, a user and the membership", func() {
			So(reg.Provision(ctx, "geofence", "webhook", "s3cret"), ShouldBeNil)

			Convey("Then the credentials verify", func() {
				ok, err := reg.CheckCredentials(ctx, "webhook", "s3cret")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})

			Convey("Then a wrong password is rejected", func() {
				ok, err := reg.CheckCredentials(ctx, "webhook", "wrong")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then an unknown user is rejected", func() {
				ok, err := reg.CheckCredentials(ctx, "nobody", "s3cret")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then the membership holds", func() {
				ok, err := reg.CheckGroupMembership(ctx, "webhook", "geofence")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				ok, err = reg.CheckGroupMembership(ctx, "webhook", "admins")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And when provisioning again with a different password", func() {
				So(reg.Provision(ctx, "geofence", "webhook", "other"), ShouldBeNil)

				Convey("Then the original password still verifies", func() {
					ok, err := reg.CheckCredentials(ctx, "webhook", "s3cret")
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
				})
			})
		})

		Convey("When assigning without the user existing", func() {
			So(reg.EnsureGroup(ctx, "geofence"), ShouldBeNil)
			err := reg.AssignUserToGroup(ctx, "ghost", "geofence")
			So(err, ShouldWrap, credentials.ErrUnknownUser)
		})

		Convey("When assigning to a missing group", func() {
			So(reg.EnsureUser(ctx, "webhook", "s3cret"), ShouldBeNil)
			err := reg.AssignUserToGroup(ctx, "webhook", "nowhere")
			So(err, ShouldWrap, credentials.ErrUnknownGroup)
		})

		Convey("When ensuring with empty names", func() {
			So(reg.EnsureGroup(ctx, ""), ShouldWrap, credentials.ErrEmptyIdentity)
			So(reg.EnsureUser(ctx, "", "x"), ShouldWrap, credentials.ErrEmptyIdentity)
		})
	})
}
