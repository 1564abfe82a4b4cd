package sceneindex

import (
	"context"
	"fmt"
	"time"

	"github.com/Vizzuality/HLS-data-project/catalog"
	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/sceneindex/db"
	"github.com/Vizzuality/HLS-data-project/util"
)

// Messages understood by SyncWhile
const (
	BeginSyncMessage = "begin"
	AbortSyncMessage = "abort"
)

const statusTimeFormat = "Mon Jan _2 15:04:05 2006"

// SearchFunc runs a catalog search. catalog.Search bound to a context
// satisfies it.
type SearchFunc func(ctx context.Context, options catalog.SearchOptions) ([]model.SceneRecord, error)

// Syncer copies recent catalog results for a region into the index.
type Syncer struct {
	Region   model.RegionOfInterest
	Lookback time.Duration
	Limit    int
	Context  *Context

	search         SearchFunc
	dbConnProvider db.ConnectionProvider
	statusChan     chan chan string
}

// NewSyncer initializes a syncer searching region over the last lookback
func NewSyncer(search SearchFunc, dbConnProvider db.ConnectionProvider, region model.RegionOfInterest, lookback time.Duration) *Syncer {
	return &Syncer{
		Region:         region,
		Lookback:       lookback,
		Limit:          100,
		Context:        &Context{},
		search:         search,
		dbConnProvider: dbConnProvider,
		statusChan:     make(chan chan string, 10),
	}
}

// SyncWhile runs Sync every frequency and whenever BeginSyncMessage arrives.
// It blocks until messageChan is closed or ctx is done.
func (s *Syncer) SyncWhile(ctx context.Context, messageChan <-chan string, frequency time.Duration) {
	util.LogInfo(s.Context, fmt.Sprintf("Sync loop started with frequency %v", frequency))

	previousStatus := "\tNone"
	scheduleTimer := time.NewTimer(frequency)
	defer scheduleTimer.Stop()
	nextScheduledStartTime := time.Now().Add(frequency)

	for {
		startJob := false

		select {
		case <-ctx.Done():
			return
		case <-scheduleTimer.C:
			util.LogInfo(s.Context, "Maximum time between syncs elapsed.")
			startJob = true
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			if msg == BeginSyncMessage {
				util.LogInfo(s.Context, "User requested sync start.")
				startJob = true
			}
		case respChan := <-s.statusChan:
			select {
			case respChan <- fmt.Sprintf("%v\nStatus: Sleeping until %v\nPrevious job:\n%v",
				time.Now().Format(statusTimeFormat),
				nextScheduledStartTime.Format(statusTimeFormat),
				previousStatus):
			default:
			}
		}

		if startJob {
			previousStatus = s.Sync(ctx, messageChan)

			scheduleTimer.Stop()
		TimerDrainLoop:
			for {
				select {
				case <-scheduleTimer.C:
				default:
					break TimerDrainLoop
				}
			}
			scheduleTimer.Reset(frequency)
			nextScheduledStartTime = time.Now().Add(frequency)
		}
	}
}

// GetStatus asks the running SyncWhile loop for its status
func (s *Syncer) GetStatus() string {
	responseChan := make(chan string, 1)
	s.statusChan <- responseChan
	return <-responseChan
}

// Sync searches the catalog and writes the results to the index. It returns
// a status report. An AbortSyncMessage read from messageChan before the
// write rolls the sync back; messageChan may be nil.
func (s *Syncer) Sync(ctx context.Context, messageChan <-chan string) string {
	started := time.Now().UTC()
	report := func(result string) string {
		return fmt.Sprintf("\tStarted: %v\n\tFinished: %v\n\tResult: %s",
			started.Format(statusTimeFormat), time.Now().UTC().Format(statusTimeFormat), result)
	}

	options := catalog.SearchOptions{
		Region:    s.Region,
		StartDate: model.FormatDate(started.Add(-s.Lookback)),
		EndDate:   model.FormatDate(started),
		Limit:     s.Limit,
	}
	scenes, err := s.search(ctx, options)
	if err != nil {
		util.LogSimpleErr(s.Context, "Sync failed to search the catalog.", err)
		return report("search failed: " + err.Error())
	}

	conn, err := s.dbConnProvider(s.Context)
	if err != nil {
		util.LogSimpleErr(s.Context, "Sync could not open database connection.", err)
		return report("database unavailable: " + err.Error())
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		util.LogSimpleErr(s.Context, "Sync could not begin DB transaction.", err)
		return report("database unavailable: " + err.Error())
	}
	count, err := db.UpsertScenes(tx, scenes)
	if err != nil {
		tx.Rollback()
		util.LogSimpleErr(s.Context, fmt.Sprintf("Sync failed after %d scenes.", count), err)
		return report("write failed: " + err.Error())
	}
	if aborted(messageChan) {
		tx.Rollback()
		util.LogAlert(s.Context, "Sync aborted by user request.")
		return report("aborted")
	}
	if err = tx.Commit(); err != nil {
		util.LogSimpleErr(s.Context, "Sync could not commit.", err)
		return report("commit failed: " + err.Error())
	}

	metrics.ScenesSynced.Add(float64(count))
	util.LogAudit(s.Context, util.LogAuditInput{Actor: "sceneindex/Sync", Action: "upsert", Actee: "scenes", Message: fmt.Sprintf("Synced %d scenes for %s/%s.", count, options.StartDate, options.EndDate), Severity: util.INFO})
	return report(fmt.Sprintf("synced %d scenes", count))
}

func aborted(messageChan <-chan string) bool {
	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				return false
			}
			if msg == AbortSyncMessage {
				return true
			}
		default:
			return false
		}
	}
}
