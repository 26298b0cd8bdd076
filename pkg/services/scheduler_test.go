package services

import (
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/push"
	"github.com/dukex/flowsmith/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(nil, "every tuesday", log.Discard())
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestScheduler_Sync(t *testing.T) {
	p := newProject(t)
	testutil.WriteDocument(t, p.flows, "a.json", testutil.CreateTestDocumentWithNodes("Alpha"))
	p.boundary.On("Push", mock.Anything, mock.Anything).Return(push.Outcome{Success: true}, nil)

	scheduler, err := NewScheduler(p.deployer(nil), "@every 1h", log.Discard())
	require.NoError(t, err)

	runs := make(chan *BatchResult, 1)
	scheduler.Runs(runs)

	scheduler.Sync()

	select {
	case batch := <-runs:
		assert.Len(t, batch.Succeeded(), 1)
	default:
		t.Fatal("sync did not report a batch")
	}

	scheduler.Sync()

	select {
	case batch := <-runs:
		assert.Empty(t, batch.Results)
	default:
		t.Fatal("sync did not report an empty batch")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	p := newProject(t)
	testutil.WriteDocument(t, p.flows, "a.json", testutil.CreateTestDocumentWithNodes("Alpha"))
	p.boundary.On("Push", mock.Anything, mock.Anything).Return(push.Outcome{Success: true}, nil)

	scheduler, err := NewScheduler(p.deployer(nil), "@every 1s", log.Discard())
	require.NoError(t, err)

	runs := make(chan *BatchResult, 1)
	scheduler.Runs(runs)

	require.NoError(t, scheduler.Start(t.Context()))
	defer scheduler.Stop()

	select {
	case batch := <-runs:
		assert.Len(t, batch.Succeeded(), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled sync did not run")
	}
}
