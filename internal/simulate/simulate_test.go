package simulate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/recicla/internal/adapters/http/api"
	"github.com/okian/recicla/internal/adapters/repository"
	"github.com/okian/recicla/internal/adapters/storage"
	service "github.com/okian/recicla/internal/app"
	"github.com/okian/recicla/internal/simulate"
	"github.com/okian/recicla/internal/views"
	"github.com/okian/recicla/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func newServer(svc *service.Service) *httptest.Server {
	screens := views.NewScreens(svc, nil)
	mux := http.NewServeMux()
	api.NewServer(svc, screens, svc, api.Limits{RecentDefault: 5, RecentMax: 1000}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestRunSession(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := service.New(repository.NewKVStore(storage.NewMemoryStore()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := newServer(svc)
		defer srv.Close()

		Convey("When a session runs with duplicates", func() {
			stats, err := simulate.Run(ctx, simulate.Config{
				BaseURL:        srv.URL,
				Teams:          4,
				Events:         120,
				Workers:        8,
				DuplicateEvery: 10,
				Reset:          true,
				Seed:           42,
			})

			Convey("Then every accepted event is credited exactly once", func() {
				So(err, ShouldBeNil)
				So(stats.TeamsCreated, ShouldEqual, 4)
				So(stats.EventsSent, ShouldEqual, 132)
				So(stats.EventsAccepted+stats.Failed+stats.Duplicates, ShouldEqual, 132)
				So(stats.Duplicates, ShouldBeGreaterThanOrEqualTo, 12-stats.Failed)

				teams, err := svc.ListTeams(ctx)
				So(err, ShouldBeNil)
				total := 0
				for _, tm := range teams {
					total += tm.Points
				}
				So(total, ShouldEqual, stats.PointsAwarded)
			})
		})

		Convey("When a second session runs without reset", func() {
			_, err := simulate.Run(ctx, simulate.Config{BaseURL: srv.URL, Teams: 2, Events: 20, Workers: 2, Seed: 1})
			So(err, ShouldBeNil)
			_, err = simulate.Run(ctx, simulate.Config{BaseURL: srv.URL, Teams: 2, Events: 20, Workers: 2, Seed: 2})

			Convey("Then earlier points are part of the baseline", func() {
				So(err, ShouldBeNil)
				teams, _ := svc.ListTeams(ctx)
				So(teams, ShouldHaveLength, 4)
			})
		})
	})
}

func TestRunConfig(t *testing.T) {
	Convey("Given bad settings", t, func() {
		_, err := simulate.Run(context.Background(), simulate.Config{})
		So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)

		_, err = simulate.Run(context.Background(), simulate.Config{BaseURL: "http://x", Events: -1})
		So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestClientRetriesBackpressure(t *testing.T) {
	Convey("Given a server that rejects twice with 429", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"code":"backpressure","message":"full"}`))
				return
			}
			_, _ = w.Write([]byte(`[{"id":"a","name":"A","points":3}]`))
		}))
		defer srv.Close()

		client := simulate.NewClient(srv.URL, time.Second)
		teams, err := client.Teams(context.Background())

		Convey("Then the third attempt succeeds", func() {
			So(err, ShouldBeNil)
			So(teams, ShouldHaveLength, 1)
			So(calls.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given a server that always rejects with 429", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := simulate.NewClient(srv.URL, time.Second).Teams(context.Background())
		So(errors.Is(err, simulate.ErrBackpressure), ShouldBeTrue)
	})

	Convey("Given a server answering 404 with an error body", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found","message":"team"}`))
		}))
		defer srv.Close()

		_, _, err := simulate.NewClient(srv.URL, time.Second).RecordEvent(context.Background(), "", "x", "Metal")
		var se *simulate.StatusError
		So(errors.As(err, &se), ShouldBeTrue)
		So(se.Code, ShouldEqual, "not_found")
	})
}
