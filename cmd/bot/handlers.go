package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultLeaderboardLimit = 50

// loop is the part of the dispatch loop the HTTP surface needs
type loop interface {
	RunOnce(ctx context.Context) (int, error)
	GetMetrics() string
}

// standings is the read side of the ledger the HTTP surface exposes
type standings interface {
	Leaderboard(n int) []models.RankingEntry
	Balance(fid string) int64
	Rank(fid string) int
}

type balanceResponse struct {
	FID     string `json:"fid"`
	Balance int64  `json:"balance"`
	Rank    int    `json:"rank"`
}

// newRouter wires the HTTP routes. Passes started by /trigger are tracked in wg
// so shutdown can wait for them.
func newRouter(ctx context.Context, wg *sync.WaitGroup, monitoringService loop, board standings) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(monitoringService)).Methods("GET")
	router.HandleFunc("/leaderboard", leaderboardHandler(board)).Methods("GET")
	router.HandleFunc("/balance/{fid:[0-9]+}", balanceHandler(board)).Methods("GET")
	// Manual trigger endpoint (for testing)
	router.HandleFunc("/trigger", triggerHandler(ctx, wg, monitoringService)).Methods("POST")

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(monitoringService loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := monitoringService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func leaderboardHandler(board standings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, `{"error":"limit must be a non-negative integer"}`, http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		entries := board.Leaderboard(limit)
		if entries == nil {
			entries = []models.RankingEntry{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			logrus.Errorf("Failed to encode leaderboard: %v", err)
		}
	}
}

func balanceHandler(board standings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := mux.Vars(r)["fid"]

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(balanceResponse{
			FID:     fid,
			Balance: board.Balance(fid),
			Rank:    board.Rank(fid),
		}); err != nil {
			logrus.Errorf("Failed to encode balance: %v", err)
		}
	}
}

func triggerHandler(ctx context.Context, wg *sync.WaitGroup, monitoringService loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := monitoringService.RunOnce(ctx); err != nil {
				logrus.Errorf("Manual dispatch trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Dispatch pass triggered"}`))
	}
}
