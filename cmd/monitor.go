package cmd

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// monitor publishes aggregation progress over HTTP via expvar, so a long
// multi-stage run can be watched with nothing fancier than curl.
type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	SubChains       *expvar.Int
	TotalDraws      *expvar.Int
	TreesPerForest  *expvar.Int
	ResampleN       *expvar.Int
	StagesDone      *expvar.Int
	GroupsRemaining *expvar.Int
	RunTime         *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("partree-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.SubChains = expvar.NewInt("Sub-Chains")
	m.TotalDraws = expvar.NewInt("Total-Draws")
	m.TreesPerForest = expvar.NewInt("Trees-Per-Forest")
	m.ResampleN = expvar.NewInt("Resample-N")
	m.StagesDone = expvar.NewInt("Stages-Done")
	m.GroupsRemaining = expvar.NewInt("Groups-Remaining")
	m.RunTime = expvar.NewFloat("Run-Time")

	go func() {
		defer close(m.stopped)
		err := m.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			panic(errors.Wrap(err, "Progress monitor failed"))
		}
	}()

	return nil
}

// Stop shuts the monitor's HTTP server down and waits for it to finish.
func (m *monitor) Stop() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := m.server.Shutdown(ctx)
	<-m.stopped
	return errors.Wrap(err, "Progress monitor did not stop cleanly")
}
