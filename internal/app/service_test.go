package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/musterhq/muster/internal/app"
	matching "github.com/musterhq/muster/internal/domain/matching"
	model "github.com/musterhq/muster/internal/domain/model"
	session "github.com/musterhq/muster/internal/session"
	logging "github.com/musterhq/muster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func testClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

// nowMS is the fixed clock reading in epoch milliseconds.
var nowMS = testClock().UnixMilli()

// fakeStrategy implements matching.Strategy with a canned result.
type fakeStrategy struct {
	result matching.Result
}

func (f *fakeStrategy) Match(context.Context, []model.RoleSlot, []model.QueueEntry) matching.Result {
	return f.result
}

// fakeSeatProvider returns a canned seat result.
type fakeSeatProvider struct {
	result session.SeatResult
	err    error
}

func (f *fakeSeatProvider) Seat(_ context.Context, _ []model.Participant) (session.SeatResult, error) {
	return f.result, f.err
}

func msString(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func TestService_RunMatching(t *testing.T) {
	Convey("Given a service with a fixed clock", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithClock(testClock),
			service.WithStaleThreshold(30_000),
		)

		roles := []model.RoleSlot{
			{Name: "tank", SlotCount: 1},
			{Name: "dps", SlotCount: 1},
		}

		Convey("When the queue fills every slot", func() {
			queue := []model.QueueEntry{
				{ID: "q1", OwnerID: "o1", HeroID: "h1", Role: "tank", JoinedAt: msString(nowMS - 5000), UpdatedAt: msString(nowMS - 1000)},
				{ID: "q2", OwnerID: "o2", HeroID: "h2", Role: "dps", JoinedAt: msString(nowMS - 4000), UpdatedAt: msString(nowMS - 1000)},
			}
			report := svc.RunMatching(ctx, service.MatchRequest{Roles: roles, Queue: queue})

			Convey("Then the result is ready with no stale entries", func() {
				So(report.Result.Ready, ShouldBeTrue)
				So(report.Result.TotalSlots, ShouldEqual, 2)
				So(report.Stale, ShouldBeEmpty)
				So(report.Removed, ShouldBeEmpty)
			})
		})

		Convey("When one entry went quiet past the threshold", func() {
			queue := []model.QueueEntry{
				{ID: "q1", OwnerID: "o1", HeroID: "h1", Role: "tank", JoinedAt: msString(nowMS - 60_000), UpdatedAt: msString(nowMS - 40_000)},
				{ID: "q2", OwnerID: "o2", HeroID: "h2", Role: "dps", JoinedAt: msString(nowMS - 4000), UpdatedAt: msString(nowMS - 1000)},
			}
			report := svc.RunMatching(ctx, service.MatchRequest{Roles: roles, Queue: queue})

			Convey("Then the stale entry is excluded and reported", func() {
				So(len(report.Stale), ShouldEqual, 1)
				So(report.Stale[0].Entry.ID, ShouldEqual, "q1")
				So(report.Result.Ready, ShouldBeFalse)
			})
		})

		Convey("When one owner queues into two roles under different heroes", func() {
			queue := []model.QueueEntry{
				{ID: "q1", OwnerID: "o1", HeroID: "h1", Role: "tank", JoinedAt: msString(nowMS - 5000), UpdatedAt: msString(nowMS - 1000)},
				{ID: "q2", OwnerID: "o1", HeroID: "h2", Role: "dps", JoinedAt: msString(nowMS - 4000), UpdatedAt: msString(nowMS - 1000)},
			}
			report := svc.RunMatching(ctx, service.MatchRequest{Roles: roles, Queue: queue})

			Convey("Then the owner holds exactly one seat in the result set", func() {
				seated := 0
				for _, a := range report.Result.Assignments {
					for _, m := range a.Members {
						if m.OwnerID == "o1" {
							seated++
						}
					}
				}
				So(seated, ShouldEqual, 1)
				So(report.Result.Ready, ShouldBeFalse)
			})
		})

		Convey("When the mode is unknown", func() {
			report := svc.RunMatching(ctx, service.MatchRequest{Mode: "ranked_5v5", Roles: roles})

			Convey("Then the failure comes back as a value", func() {
				So(report.Result.Ready, ShouldBeFalse)
				So(report.Result.Error, ShouldNotBeNil)
				So(report.Result.Error.Type, ShouldEqual, matching.ErrorUnsupportedMode)
			})
		})
	})

	Convey("Given a custom strategy that emits duplicate owners", t, func() {
		ctx := context.Background()
		dirty := &fakeStrategy{result: matching.Result{
			Ready:      true,
			TotalSlots: 2,
			Assignments: []model.Assignment{{
				Role:      "tank",
				SlotCount: 2,
				RoleSlots: []model.SlotResult{
					{SlotID: "s1", SlotIndex: 0, Members: []model.Member{{OwnerID: "o1", HeroID: "h1"}}},
					{SlotID: "s2", SlotIndex: 1, Members: []model.Member{{OwnerID: "o1", HeroID: "h2"}}},
				},
			}},
		}}
		svc := service.New(
			service.WithClock(testClock),
			service.WithStrategy("dirty", dirty),
			service.WithSafeFallback(false),
		)

		Convey("When the run goes through sanitization", func() {
			report := svc.RunMatching(ctx, service.MatchRequest{Mode: "dirty"})

			Convey("Then the duplicate owner is removed and surfaced", func() {
				So(len(report.Removed), ShouldEqual, 1)
				So(report.Removed[0].Reason, ShouldEqual, model.RemovalDuplicateOwner)
				So(report.Result.Assignments[0].FilledSlots, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a service with warning limit 2", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithClock(testClock),
			service.WithWarningLimit(2),
			service.WithDefaultMode(session.ModeAsync),
		)

		Convey("When a session is opened without a mode", func() {
			id := svc.OpenSession(ctx, "match-1", "")

			Convey("Then the configured default applies", func() {
				So(id, ShouldEqual, "match-1")
				snap, err := svc.SessionSnapshot(ctx, id)
				So(err, ShouldBeNil)
				So(snap.WarningLimit, ShouldEqual, 2)
			})
		})

		Convey("When operating on an unknown session", func() {
			_, err := svc.BeginTurn(ctx, "missing", 1, nil)

			Convey("Then the registry sentinel surfaces", func() {
				So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When an owner sits out three turns", func() {
			id := svc.OpenSession(ctx, "match-2", session.ModeRealtime)
			eligible := []string{"a"}

			var last session.TurnReport
			for turn := 1; turn <= 3; turn++ {
				_, err := svc.BeginTurn(ctx, id, turn, eligible)
				So(err, ShouldBeNil)
				last, _ = svc.CompleteTurn(ctx, id, turn, "timeout", eligible)
			}

			Convey("Then the third turn escalates to proxy", func() {
				So(last.Escalated, ShouldResemble, []string{"a"})
				So(last.Snapshot.Entries[0].Status, ShouldEqual, model.StatusProxy)
			})
		})

		Convey("When a session is closed", func() {
			id := svc.OpenSession(ctx, "match-3", "")
			svc.CloseSession(ctx, id)

			_, err := svc.SessionSnapshot(ctx, id)
			So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestService_SeatDropIns(t *testing.T) {
	Convey("Given a service with a seat provider", t, func() {
		ctx := context.Background()
		provider := &fakeSeatProvider{result: session.SeatResult{
			Arrivals: []session.Arrival{{OwnerID: "o9", Role: "healer"}},
		}}
		svc := service.New(
			service.WithClock(testClock),
			service.WithSeatProvider(provider),
		)
		id := svc.OpenSession(ctx, "match-1", session.ModeAsync)
		_, err := svc.BeginTurn(ctx, id, 3, nil)
		So(err, ShouldBeNil)

		Convey("When drop-ins are seated", func() {
			outcome, err := svc.SeatDropIns(ctx, id, nil)

			Convey("Then the drop-in event lands in the session log", func() {
				So(err, ShouldBeNil)
				So(len(outcome.Events), ShouldEqual, 1)
				So(outcome.Events[0].Type, ShouldEqual, model.EventDropInJoined)
				So(outcome.Events[0].Turn, ShouldEqual, 3)

				snap, err := svc.SessionSnapshot(ctx, id)
				So(err, ShouldBeNil)
				So(len(snap.Events), ShouldEqual, 1)
			})
		})
	})
}

func TestService_HistoryRequiresStart(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithClock(testClock))

		Convey("When history is requested", func() {
			_, err := svc.History(ctx, "asc")

			Convey("Then it reports the missing persistence path", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a stopped service", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		svc := service.New(service.WithClock(testClock), service.WithWorkerCount(2))
		svc.OpenSession(ctx, "match-1", "")

		Convey("When stats are read before start", func() {
			stats := svc.GetStats()

			Convey("Then only static fields are present", func() {
				So(stats["started"], ShouldBeFalse)
				So(stats["sessions"], ShouldEqual, 1)
				So(stats, ShouldNotContainKey, "queueLength")
			})
		})

		Convey("When stats are read after start", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			stats := svc.GetStats()

			Convey("Then queue and store figures appear", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["storedEvents"], ShouldEqual, 0)
			})
		})
	})
}
