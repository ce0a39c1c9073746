package middleware

import (
	"net/http"
	"time"
)

type RequestRecorder interface {
	Record(status int, duration time.Duration)
}

func Metrics(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			recorder.Record(status, time.Since(start))
		})
	}
}
