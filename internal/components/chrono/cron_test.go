package chrono

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"qhare-bridge/lib/testutil"
)

func TestStandardCron(t *testing.T) {
	tel := testutil.NewTelemetry(t)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	scheduler := NewStandardCron(tel, paris)
	defer scheduler.Stop()

	ran := make(chan struct{}, 1)
	require.NoError(t, scheduler.Cron("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	select {
	case <-ran:
	case <-time.After(time.Second * 5):
		t.Fatal("job did not run")
	}

	err = scheduler.Cron("not a spec", func() {})
	require.ErrorContains(t, err, `cron spec "not a spec"`)
}

func TestCronLogger(t *testing.T) {
	tel := testutil.NewTelemetry(t)
	logger := cronLogger{tel: tel}

	require.Equal(t, "now=1 entry=2", pairs([]any{"now", 1, "entry", 2}))
	require.Equal(t, "now=1", pairs([]any{"now", 1, "dangling"}))

	logger.Error(errors.New("boom"), "panic", "stack", "...")
	require.Len(t, tel.Broken, 1)
	require.Equal(t, "job", tel.Broken[0].Id)
	require.EqualError(t, tel.Broken[0].Params[0].(error), "panic: boom")
	require.Equal(t, "stack=...", tel.Broken[0].Params[1])
}
