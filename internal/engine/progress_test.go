package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func feed(signals ...int) chan int {
	ch := make(chan int, len(signals))
	for _, s := range signals {
		ch <- s
	}
	close(ch)
	return ch
}

func TestAggregator_Reconciles(t *testing.T) {
	var reports []float64
	agg := NewAggregator(4000, ReporterFunc(func(p float64) { reports = append(reports, p) }))

	require.NoError(t, agg.Drain(feed(1000, 1000, 1000, 1000)))
	require.Equal(t, 4000, agg.Done())
	require.Equal(t, 4, agg.Signals())
	require.Equal(t, []float64{25, 50, 75, 100}, reports)
}

func TestAggregator_ShortTotalIsMismatch(t *testing.T) {
	agg := NewAggregator(10, nil)
	err := agg.Drain(feed(3, 4))
	require.ErrorIs(t, err, ErrProgressMismatch)
	require.Contains(t, err.Error(), "drained 7 of 10")
}

func TestAggregator_OvershootIsMismatch(t *testing.T) {
	agg := NewAggregator(5, nil)
	require.ErrorIs(t, agg.Drain(feed(3, 4)), ErrProgressMismatch)
}

func TestAggregator_NegativeSignalDrainsToEnd(t *testing.T) {
	agg := NewAggregator(5, nil)
	err := agg.Drain(feed(2, -1, 3))
	require.ErrorIs(t, err, ErrProgressMismatch)
	require.Contains(t, err.Error(), "negative")
	require.Equal(t, 3, agg.Signals(), "every signal is consumed")
	require.Equal(t, 5, agg.Done())
}

func TestAggregator_EmptyTotal(t *testing.T) {
	agg := NewAggregator(0, nil)
	require.NoError(t, agg.Drain(feed()))
	require.Equal(t, 100.0, agg.Percent())
}

func TestTerminalReporter_Format(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf)
	r.Report(12.3456)
	r.Report(100)
	r.Finish()
	require.Equal(t, "\r12.35%\r100.00%\n", buf.String())
}
