package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/bikenavi/bikenavi/internal/worker"
)

func TestDispatch(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		failing map[string]error
		wantAck bool
		calls   int32
	}{
		{"refresh all", `{"job_type":"gbfs_refresh"}`, nil, true, 2},
		{"refresh one", `{"job_type":"gbfs_refresh","operators":["docomo"]}`, nil, true, 1},
		{"partial failure acks", `{"job_type":"gbfs_refresh"}`, map[string]error{"docomo": errors.New("down")}, true, 2},
		{"total failure nacks", `{"job_type":"gbfs_refresh","operators":["docomo"]}`, map[string]error{"docomo": errors.New("down")}, false, 1},
		{"health check", `{"job_type":"health_check"}`, nil, true, 1},
		{"failed health check nacks", `{"job_type":"health_check"}`, map[string]error{"docomo": errors.New("down")}, false, 1},
		{"unknown job acks", `{"job_type":"alert_evaluation"}`, nil, true, 0},
		{"malformed acks", `{not json`, nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &fakeRefresher{operators: []string{"docomo", "hellocycling"}, failing: tt.failing}
			job := worker.NewRefreshJob(worker.RefreshJobConfig{Refresher: refresher, Logger: zerolog.Nop()})

			ack := worker.Dispatch(context.Background(), job, []byte(tt.data), zerolog.Nop())

			assert.Equal(t, tt.wantAck, ack)
			assert.Equal(t, tt.calls, refresher.calls.Load())
		})
	}
}

func TestDispatch_NoOperatorsAcks(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop()})

	assert.True(t, worker.Dispatch(context.Background(), job, []byte(`{"job_type":"gbfs_refresh"}`), zerolog.Nop()))
}
