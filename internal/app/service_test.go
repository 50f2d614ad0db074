package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/recicla/internal/adapters/repository"
	"github.com/okian/recicla/internal/adapters/storage"
	service "github.com/okian/recicla/internal/app"
	"github.com/okian/recicla/internal/domain/aggregate"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	kv   *storage.MemoryStore
	repo *repository.KVStore
	svc  *service.Service
}

func start(opts ...service.Option) fixture {
	kv := storage.NewMemoryStore()
	repo := repository.NewKVStore(kv)
	svc := service.New(repo, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return fixture{kv: kv, repo: repo, svc: svc}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(repository.NewKVStore(storage.NewMemoryStore()))

		Convey("Mutations before Start fail with ErrNotStarted", func() {
			_, err := svc.AddTeam(ctx, "Turma A")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})

		Convey("When started and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx)["started"], ShouldEqual, true)
			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped and rejects mutations", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
				So(errors.Is(svc.ResetAllPoints(ctx), service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_AddTeam(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		Convey("Blank names are rejected", func() {
			for _, name := range []string{"", "   ", "\t\n"} {
				_, err := f.svc.AddTeam(ctx, name)
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			}
			teams, err := f.svc.ListTeams(ctx)
			So(err, ShouldBeNil)
			So(teams, ShouldBeEmpty)
		})

		Convey("Overlong names are rejected", func() {
			_, err := f.svc.AddTeam(ctx, strings.Repeat("á", service.MaxTeamNameLength+1))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			team, err := f.svc.AddTeam(ctx, strings.Repeat("á", service.MaxTeamNameLength))
			So(err, ShouldBeNil)
			So(team.Name, ShouldHaveLength, 2*service.MaxTeamNameLength)
		})

		Convey("When adding a team next to scored teams", func() {
			a, err := f.svc.AddTeam(ctx, "Azul")
			So(err, ShouldBeNil)
			_, err = f.svc.RecordEvent(ctx, a.ID, "Papel")
			So(err, ShouldBeNil)

			added, err := f.svc.AddTeam(ctx, "  Turma A  ")
			So(err, ShouldBeNil)

			Convey("Then the name is trimmed, points are zero and it lists last", func() {
				So(added.Name, ShouldEqual, "Turma A")
				So(added.Points, ShouldEqual, 0)
				So(added.ID, ShouldNotBeBlank)

				teams, err := f.svc.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(teams[len(teams)-1].ID, ShouldEqual, added.ID)
			})

			Convey("And lastUpdate is written", func() {
				last, err := f.svc.LastUpdate(ctx)
				So(err, ShouldBeNil)
				So(last.IsZero(), ShouldBeFalse)
			})
		})

		Convey("Rapid adds produce distinct ids", func() {
			seen := map[string]bool{}
			for i := 0; i < 50; i++ {
				team, err := f.svc.AddTeam(ctx, fmt.Sprintf("T%d", i))
				So(err, ShouldBeNil)
				So(seen[team.ID], ShouldBeFalse)
				seen[team.ID] = true
			}
		})
	})
}

func TestService_RecordEvent(t *testing.T) {
	Convey("Given a team with five points", t, func() {
		ctx := context.Background()
		at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
		f := start(service.WithClock(func() time.Time { return at }))
		defer f.svc.Stop()

		So(f.repo.Commit(ctx, repository.Mutation{Teams: []model.Team{{ID: "t1", Name: "Verde", Points: 5}}, WriteTeams: true}), ShouldBeNil)

		Convey("When Vidro is recorded", func() {
			ev, err := f.svc.RecordEvent(ctx, "t1", "Vidro")
			So(err, ShouldBeNil)

			Convey("Then the team has eleven points", func() {
				team, err := f.svc.Team(ctx, "t1")
				So(err, ShouldBeNil)
				So(team.Points, ShouldEqual, 11)
			})

			Convey("And the most recent event is exactly that event", func() {
				recent, err := f.svc.RecentEvents(ctx, 1)
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 1)
				So(recent[0].TeamID, ShouldEqual, ev.TeamID)
				So(recent[0].Material, ShouldEqual, "Vidro")
				So(recent[0].Points, ShouldEqual, 6)
				So(recent[0].Timestamp.Equal(at), ShouldBeTrue)
			})

			Convey("And both history keys hold the event", func() {
				st, err := f.repo.LoadState(ctx)
				So(err, ShouldBeNil)
				So(st.History, ShouldHaveLength, 1)
				So(st.RecyclingLog, ShouldHaveLength, 1)
				So(st.LastUpdate.Equal(at), ShouldBeTrue)
			})
		})

		Convey("Material lookup falls back to case-insensitive names", func() {
			ev, err := f.svc.RecordEvent(ctx, "t1", "plástico")
			So(err, ShouldBeNil)
			So(ev.Material, ShouldEqual, "Plástico")
			So(ev.Points, ShouldEqual, 8)
		})

		Convey("Unknown materials are rejected without touching the store", func() {
			for _, m := range []string{"Eletrônico", "", "Madeira"} {
				_, err := f.svc.RecordEvent(ctx, "t1", m)
				So(errors.Is(err, errs.ErrInvalidMaterial), ShouldBeTrue)
			}
			team, err := f.svc.Team(ctx, "t1")
			So(err, ShouldBeNil)
			So(team.Points, ShouldEqual, 5)
		})

		Convey("Unknown teams are not found", func() {
			_, err := f.svc.RecordEvent(ctx, "ghost", "Metal")
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			_, err = f.svc.Team(ctx, "ghost")
			So(errs.IsNotFound(err), ShouldBeTrue)
		})

		Convey("A negative recent limit is a validation error", func() {
			_, err := f.svc.RecentEvents(ctx, -1)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			none, err := f.svc.RecentEvents(ctx, 0)
			So(err, ShouldBeNil)
			So(none, ShouldBeEmpty)
		})
	})
}

func TestService_PointsMatchHistory(t *testing.T) {
	Convey("Given several teams and a serial stream of events", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		var ids []string
		for _, name := range []string{"A", "B", "C"} {
			team, err := f.svc.AddTeam(ctx, name)
			So(err, ShouldBeNil)
			ids = append(ids, team.ID)
		}
		materials := []string{"Metal", "Plástico", "Vidro", "Papel"}
		for i := 0; i < 40; i++ {
			_, err := f.svc.RecordEvent(ctx, ids[i%len(ids)], materials[(i*7)%len(materials)])
			So(err, ShouldBeNil)
		}

		Convey("Then each team's points equal the sum of its events", func() {
			events, err := f.svc.RecentEvents(ctx, 1000)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 40)

			sums := map[string]int{}
			for _, ev := range events {
				sums[ev.TeamID] += ev.Points
			}
			teams, err := f.svc.ListTeams(ctx)
			So(err, ShouldBeNil)
			for _, team := range teams {
				So(team.Points, ShouldEqual, sums[team.ID])
			}
		})

		Convey("And listing twice gives the same order", func() {
			first, err := f.svc.ListTeams(ctx)
			So(err, ShouldBeNil)
			second, err := f.svc.ListTeams(ctx)
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
			for i := 1; i < len(first); i++ {
				So(first[i-1].Points, ShouldBeGreaterThanOrEqualTo, first[i].Points)
			}
		})
	})
}

func TestService_ConcurrentEvents(t *testing.T) {
	Convey("Given concurrent registrations against one team", t, func() {
		ctx := context.Background()
		f := start(service.WithQueueSize(512))
		defer f.svc.Stop()

		team, err := f.svc.AddTeam(ctx, "Concorrente")
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.svc.RecordEvent(ctx, team.ID, "Papel"); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		Convey("Then no update is lost", func() {
			got, err := f.svc.Team(ctx, team.ID)
			So(err, ShouldBeNil)
			So(got.Points, ShouldEqual, 400)

			events, err := f.svc.RecentEvents(ctx, 1000)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 100)
		})
	})
}

func TestService_ResetAndDelete(t *testing.T) {
	Convey("Given teams with recorded events", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		a, err := f.svc.AddTeam(ctx, "A")
		So(err, ShouldBeNil)
		b, err := f.svc.AddTeam(ctx, "B")
		So(err, ShouldBeNil)
		_, err = f.svc.RecordEvent(ctx, a.ID, "Metal")
		So(err, ShouldBeNil)
		_, err = f.svc.RecordEvent(ctx, b.ID, "Vidro")
		So(err, ShouldBeNil)

		Convey("When all points are reset", func() {
			So(f.svc.ResetAllPoints(ctx), ShouldBeNil)

			Convey("Then teams remain with zero points in insertion order", func() {
				teams, err := f.svc.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(teams, ShouldHaveLength, 2)
				So(teams[0].ID, ShouldEqual, a.ID)
				So(teams[0].Points, ShouldEqual, 0)
				So(teams[1].Points, ShouldEqual, 0)
			})

			Convey("And the snapshot and recent events are empty", func() {
				snap, err := f.svc.LoadSnapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.TotalItems, ShouldEqual, 0)
				So(snap.TotalPoints, ShouldEqual, 0)

				recent, err := f.svc.RecentEvents(ctx, 5)
				So(err, ShouldBeNil)
				So(recent, ShouldBeEmpty)
			})
		})

		Convey("When all teams are deleted", func() {
			So(f.svc.DeleteAllTeams(ctx), ShouldBeNil)

			Convey("Then the list is empty and old ids are not found", func() {
				teams, err := f.svc.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(teams, ShouldBeEmpty)

				_, err = f.svc.RecordEvent(ctx, a.ID, "Metal")
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			})

			Convey("And only lastUpdate remains in the store", func() {
				got, err := f.kv.MultiGet(ctx, storage.KeyTeams, storage.KeyHistory, storage.KeyRecyclingLog, storage.KeyLastUpdate)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got, ShouldContainKey, storage.KeyLastUpdate)
			})
		})
	})
}

func TestService_Activity(t *testing.T) {
	Convey("Given an event whose team was removed from the list", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		a, err := f.svc.AddTeam(ctx, "A")
		So(err, ShouldBeNil)
		_, err = f.svc.RecordEvent(ctx, a.ID, "Metal")
		So(err, ShouldBeNil)
		b, err := f.svc.AddTeam(ctx, "B")
		So(err, ShouldBeNil)
		_, err = f.svc.RecordEvent(ctx, b.ID, "Papel")
		So(err, ShouldBeNil)
		So(f.repo.Commit(ctx, repository.Mutation{Teams: []model.Team{b}, WriteTeams: true}), ShouldBeNil)

		Convey("Then activity falls back to the placeholder name", func() {
			act, err := f.svc.RecentActivity(ctx, 5)
			So(err, ShouldBeNil)
			So(act, ShouldHaveLength, 2)
			So(act[0].TeamName, ShouldEqual, "B")
			So(act[1].TeamName, ShouldEqual, model.OrphanTeamName)
			So(act[1].Orphan, ShouldBeTrue)
		})
	})
}

func TestService_Snapshot(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		Convey("When the recycling log holds events", func() {
			team, err := f.svc.AddTeam(ctx, "A")
			So(err, ShouldBeNil)
			for _, m := range []string{"Metal", "Metal", "Papel"} {
				_, err := f.svc.RecordEvent(ctx, team.ID, m)
				So(err, ShouldBeNil)
			}

			snap, err := f.svc.LoadSnapshot(ctx)
			So(err, ShouldBeNil)
			So(snap.TotalItems, ShouldEqual, 3)
			So(snap.TotalPoints, ShouldEqual, 24)
			So(snap.Count("metal"), ShouldEqual, 2)
		})

		Convey("When the recycling log is malformed", func() {
			So(f.kv.Set(ctx, storage.KeyRecyclingLog, `[{"bogus":true}]`), ShouldBeNil)

			snap, err := f.svc.LoadSnapshot(ctx)

			Convey("Then zeros come back with a storage error", func() {
				So(errs.IsStorage(err), ShouldBeTrue)
				So(snap, ShouldResemble, aggregate.Empty())
			})

			Convey("And registering fails without writing", func() {
				team, err := f.svc.AddTeam(ctx, "A")
				So(err, ShouldBeNil)
				_, err = f.svc.RecordEvent(ctx, team.ID, "Metal")
				So(errs.IsStorage(err), ShouldBeTrue)

				got, err := f.svc.Team(ctx, team.ID)
				So(err, ShouldBeNil)
				So(got.Points, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Broadcast(t *testing.T) {
	Convey("Given a subscriber", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		var mu sync.Mutex
		calls := 0
		unsubscribe := f.svc.Subscribe(func(context.Context) {
			mu.Lock()
			calls++
			mu.Unlock()
		})

		Convey("Every successful mutation broadcasts once, after it returns", func() {
			team, err := f.svc.AddTeam(ctx, "A")
			So(err, ShouldBeNil)
			_, err = f.svc.RecordEvent(ctx, team.ID, "Metal")
			So(err, ShouldBeNil)
			So(f.svc.ResetAllPoints(ctx), ShouldBeNil)
			So(f.svc.DeleteAllTeams(ctx), ShouldBeNil)

			mu.Lock()
			defer mu.Unlock()
			So(calls, ShouldEqual, 4)
		})

		Convey("Failed mutations do not broadcast", func() {
			_, _ = f.svc.AddTeam(ctx, "")
			_, _ = f.svc.RecordEvent(ctx, "ghost", "Metal")

			mu.Lock()
			defer mu.Unlock()
			So(calls, ShouldEqual, 0)
		})

		Convey("After unsubscribing nothing is delivered", func() {
			unsubscribe()
			unsubscribe()
			_, err := f.svc.AddTeam(ctx, "A")
			So(err, ShouldBeNil)

			mu.Lock()
			defer mu.Unlock()
			So(calls, ShouldEqual, 0)
		})
	})
}

func TestService_RequestDedupe(t *testing.T) {
	Convey("Given a team and a request id", t, func() {
		ctx := context.Background()
		f := start()
		defer f.svc.Stop()

		team, err := f.svc.AddTeam(ctx, "A")
		So(err, ShouldBeNil)

		first, dup, err := f.svc.RecordEventOnce(ctx, "tap-1", team.ID, "Metal")
		So(err, ShouldBeNil)
		So(dup, ShouldBeFalse)

		Convey("When the same request is replayed", func() {
			again, dup, err := f.svc.RecordEventOnce(ctx, "tap-1", team.ID, "Metal")

			Convey("Then the original event is returned and nothing is recorded", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(again, ShouldResemble, first)

				got, err := f.svc.Team(ctx, team.ID)
				So(err, ShouldBeNil)
				So(got.Points, ShouldEqual, 10)
			})
		})

		Convey("When points are reset the window is cleared", func() {
			So(f.svc.ResetAllPoints(ctx), ShouldBeNil)
			_, dup, err := f.svc.RecordEventOnce(ctx, "tap-1", team.ID, "Metal")
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		})
	})
}

// gatedRepo blocks Commit until released so the queue can be filled.
type gatedRepo struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) Commit(ctx context.Context, m repository.Mutation) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.Store.Commit(ctx, m)
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a writer stuck on a slow commit and a queue of one", t, func() {
		ctx := context.Background()
		repo := &gatedRepo{
			Store:   repository.NewKVStore(storage.NewMemoryStore()),
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		svc := service.New(repo, service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = svc.AddTeam(ctx, "first") }()
		<-repo.entered
		go func() { defer wg.Done(); _, _ = svc.AddTeam(ctx, "second") }()
		for svc.GetStats(ctx)["queueLength"] != 1 {
			time.Sleep(time.Millisecond)
		}

		Convey("Then a third mutation is rejected with ErrBackpressure", func() {
			_, err := svc.AddTeam(ctx, "third")
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
		})

		close(repo.release)
		wg.Wait()
		svc.Stop()
	})
}

// readCounter counts the reads that reach the key-value store.
type readCounter struct {
	storage.Store
	mu        sync.Mutex
	gets      int
	multiGets int
}

func (c *readCounter) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.Get(ctx, key)
}

func (c *readCounter) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	c.mu.Lock()
	c.multiGets++
	c.mu.Unlock()
	return c.Store.MultiGet(ctx, keys...)
}

func (c *readCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets, c.multiGets = 0, 0
}

func (c *readCounter) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.multiGets
}

func TestService_RecordEventReadsStateOnce(t *testing.T) {
	Convey("Given a service over a store that counts reads", t, func() {
		ctx := context.Background()
		kv := &readCounter{Store: storage.NewMemoryStore()}
		svc := service.New(repository.NewKVStore(kv))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		team, err := svc.AddTeam(ctx, "Turma A")
		So(err, ShouldBeNil)
		_, err = svc.RecordEvent(ctx, team.ID, "Papel")
		So(err, ShouldBeNil)
		kv.reset()

		Convey("When another event is recorded", func() {
			ev, err := svc.RecordEvent(ctx, team.ID, "Metal")
			So(err, ShouldBeNil)
			So(ev.Points, ShouldEqual, 10)

			Convey("Then teams and both histories come from a single MultiGet", func() {
				gets, multiGets := kv.counts()
				So(gets, ShouldEqual, 0)
				So(multiGets, ShouldEqual, 1)
			})

			Convey("Then both histories carry the new event first", func() {
				events, err := svc.RecentEvents(ctx, 5)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].Material, ShouldEqual, "Metal")

				snap, err := svc.LoadSnapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.TotalPoints, ShouldEqual, 14)
				So(snap.TotalItems, ShouldEqual, 2)
			})
		})
	})
}
