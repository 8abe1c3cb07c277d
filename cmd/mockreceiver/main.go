// Command mockreceiver is a standalone HTTP server for exercising the
// dispatcher locally: endpoints that always succeed, always fail, respond
// slowly, or fail intermittently, plus HMAC verification matching the
// dispatcher's signing convention.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/signer"
)

var requestCount atomic.Int64

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	secret := []byte(os.Getenv("WEBHOOK_SECRET"))

	verify := func(next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}

			if len(secret) > 0 {
				sig := r.Header.Get(signer.Header)
				if !signer.Verify(secret, body, sig) {
					requestCount.Add(1)
					http.Error(w, "signature mismatch", http.StatusUnauthorized)
					return
				}
			}

			next(w, r)
		}
	}

	http.HandleFunc("/webhook/success", verify(func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, http.StatusOK)
		respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}))

	http.HandleFunc("/webhook/fail", verify(func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		logRequest(r, count, http.StatusInternalServerError)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}))

	http.HandleFunc("/webhook/slow", verify(func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		time.Sleep(3 * time.Second)
		logRequest(r, count, http.StatusOK)
		respondJSON(w, http.StatusOK, map[string]string{"status": "received (slow)"})
	}))

	http.HandleFunc("/webhook/flaky", verify(func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		if rand.Float64() < 0.5 {
			logRequest(r, count, http.StatusServiceUnavailable)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
			return
		}
		logRequest(r, count, http.StatusOK)
		respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}))

	http.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]int64{"total_requests": requestCount.Load()})
	})

	log.Printf("mock receiver listening on :%s", port)
	log.Printf("  POST /webhook/success -> 200")
	log.Printf("  POST /webhook/fail    -> 500")
	log.Printf("  POST /webhook/slow    -> 200 (3s delay)")
	log.Printf("  POST /webhook/flaky   -> 200 or 503, coin flip")
	log.Printf("  GET  /stats           -> request count")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | sig=%s\n",
		count, r.Method, r.URL.Path, status,
		truncate(r.Header.Get(signer.Header), 16),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
