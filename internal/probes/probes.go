package probes

import (
	"net/http"
	"sync/atomic"
)

// Readiness reports whether the service accepts traffic.
// It starts ready and is switched off when shutdown begins.
type Readiness struct {
	notReady int32
}

func (r *Readiness) SetReady(ready bool) {
	var v int32
	if !ready {
		v = 1
	}
	atomic.StoreInt32(&r.notReady, v)
}

func (r *Readiness) MakeReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&r.notReady) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func MakeLiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
