package jobs

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// KeepAliveJob pings the local health endpoint so free-tier hosts that idle
// out HTTP services keep the process warm.
type KeepAliveJob struct {
	url      string
	interval time.Duration
	client   *http.Client
	done     chan struct{}
}

func NewKeepAliveJob(url string, interval time.Duration) *KeepAliveJob {
	return &KeepAliveJob{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		done:     make(chan struct{}),
	}
}

func (j *KeepAliveJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Str("url", j.url).Msg("keep-alive job started")
}

func (j *KeepAliveJob) Stop() {
	close(j.done)
	log.Info().Msg("keep-alive job stopped")
}

func (j *KeepAliveJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.ping()
		}
	}
}

func (j *KeepAliveJob) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		log.Error().Err(err).Msg("keep-alive request build failed")
		return
	}

	resp, err := j.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("keep-alive ping failed")
		return
	}
	resp.Body.Close()
}
