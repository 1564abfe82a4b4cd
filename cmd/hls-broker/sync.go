package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Vizzuality/HLS-data-project/catalog"
	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/sceneindex"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/gorilla/mux"
	cli "gopkg.in/urfave/cli.v1"
)

// syncAction keeps the index up to date and serves the sync status
func syncAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	region, err := model.ParseRegion(c.String("region"))
	if err != nil {
		return util.WrapError(util.Configuration, err)
	}
	lc := &catalog.Context{BaseURL: cfg.CMRSTACURL}
	search := func(ctx context.Context, options catalog.SearchOptions) ([]model.SceneRecord, error) {
		return catalog.Search(ctx, options, lc)
	}
	syncer := sceneindex.NewSyncer(search, getConnectionProviderFunc(cfg), region, c.Duration("lookback"))

	if c.Bool("once") {
		status := syncer.Sync(context.Background(), nil)
		fmt.Fprintln(stdout, status)
		return nil
	}

	// Create the channel that sends the start/stop messages to the Syncer.
	messageChan := make(chan string, 5)
	go syncer.SyncWhile(context.Background(), messageChan, cfg.SyncFrequency)

	router := createSyncRouter(syncer, messageChan)
	util.LogInfo(syncer.Context, "Listening on port "+cfg.PortStr())
	return launchServerFunc(cfg.PortStr(), router)
}

func createSyncRouter(syncer *sceneindex.Syncer, messageChan chan<- string) *mux.Router {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.Handle("/metrics", metrics.Handler())
	router.HandleFunc("/sync/", func(resp http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(resp, syncer.GetStatus())
	})
	router.HandleFunc("/sync/start", func(resp http.ResponseWriter, req *http.Request) {
		sendSyncMessage(syncer, messageChan, sceneindex.BeginSyncMessage, "Begin sync request submitted.", resp)
	})
	router.HandleFunc("/sync/cancel", func(resp http.ResponseWriter, req *http.Request) {
		sendSyncMessage(syncer, messageChan, sceneindex.AbortSyncMessage, "Cancel request submitted.", resp)
	})
	return router
}

func sendSyncMessage(syncer *sceneindex.Syncer, messageChan chan<- string, message, submitted string, writer http.ResponseWriter) {
	select {
	case messageChan <- message:
		fmt.Fprintln(writer, submitted)
	default:
		fmt.Fprintln(writer, "Error submitting request.")
	}
	fmt.Fprintln(writer, syncer.GetStatus())
}
