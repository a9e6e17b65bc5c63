package harness_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowtest/flowfile"
	"github.com/c360/flowtest/harness"
	"github.com/c360/flowtest/metric"
	"github.com/c360/flowtest/processor"
	"github.com/c360/flowtest/property"
	"github.com/c360/flowtest/session"
	mocks "github.com/c360/flowtest/testutil"
)

func TestPassthroughRoutesEveryQueuedFlowFile(t *testing.T) {
	r, err := harness.New(mocks.NewPassthroughProcessor())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		r.EnqueueBytes([]byte("payload"), map[string]string{"seq": string(rune('a' + i))})
	}
	require.Equal(t, 5, r.QueueSize())

	require.NoError(t, r.Run(1))

	r.AssertAllTransferred(t, "success", 5)
	r.AssertQueueEmpty(t)
	assert.Zero(t, r.TransferCount("failure"), "unseen relationships count zero")
	assert.Empty(t, r.FlowFilesFor("failure"))
}

func TestFlowFilesForPreservesEnqueueOrder(t *testing.T) {
	r, err := harness.New(mocks.NewPassthroughProcessor())
	require.NoError(t, err)

	first := r.EnqueueBytes([]byte("one"), nil)
	second := r.EnqueueBytes([]byte("two"), nil)
	require.NoError(t, r.Run(1))

	out := r.FlowFilesFor("success")
	require.Len(t, out, 2)
	assert.Equal(t, first.ID(), out[0].ID())
	assert.Equal(t, second.ID(), out[1].ID())
	assert.Equal(t, []byte("one"), out[0].Content())
	assert.Equal(t, []byte("two"), out[1].Content())
}

func TestSingleFlowFileScenario(t *testing.T) {
	mock := mocks.NewPassthroughProcessor()
	r, err := harness.New(mock)
	require.NoError(t, err)

	r.EnqueueBytes([]byte("hello"), map[string]string{flowfile.CoreAttributeFilename: "greeting.txt"})
	require.NoError(t, r.Run(1))

	assert.Equal(t, 1, mock.ScheduledCalls)
	assert.Equal(t, 1, mock.TriggerCalls)
	assert.Equal(t, 1, mock.UnscheduledCalls)
	assert.Equal(t, 1, mock.StoppedCalls)

	out := r.FlowFilesFor("success")
	require.Len(t, out, 1)
	name, ok := out[0].Attribute(flowfile.CoreAttributeFilename)
	require.True(t, ok)
	assert.Equal(t, "greeting.txt", name)
	assert.Equal(t, []byte("hello"), out[0].Content())
}

func TestEnqueueReader(t *testing.T) {
	r, err := harness.New(mocks.NewMockProcessor())
	require.NoError(t, err)

	ff, err := r.EnqueueReader(bytes.NewBufferString("streamed"), map[string]string{"origin": "buffer"})
	require.NoError(t, err)

	assert.Equal(t, []byte("streamed"), ff.Content())
	origin, _ := ff.Attribute("origin")
	assert.Equal(t, "buffer", origin)
	r.AssertQueueNotEmpty(t)
}

func TestEnqueueFileDefaultsFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c"), 0o644))

	r, err := harness.New(mocks.NewMockProcessor())
	require.NoError(t, err)

	ff, err := r.EnqueueFile(path, nil)
	require.NoError(t, err)

	name, ok := ff.Attribute(flowfile.CoreAttributeFilename)
	require.True(t, ok)
	assert.Equal(t, "input.csv", name)
	assert.Equal(t, []byte("a,b,c"), ff.Content())

	// An explicit filename attribute wins over the path's base name.
	ff, err = r.EnqueueFile(path, map[string]string{flowfile.CoreAttributeFilename: "renamed.csv"})
	require.NoError(t, err)
	name, _ = ff.Attribute(flowfile.CoreAttributeFilename)
	assert.Equal(t, "renamed.csv", name)
}

func TestEnqueueFileMissingPath(t *testing.T) {
	r, err := harness.New(mocks.NewMockProcessor())
	require.NoError(t, err)

	_, err = r.EnqueueFile(filepath.Join(t.TempDir(), "absent.txt"), nil)
	assert.Error(t, err)
}

func TestEnqueueFixture(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "flowfiles.yaml")
	content := `- attributes:
    filename: a.txt
  content: "hello"
- attributes:
    filename: b.txt
  content: "world"
`
	require.NoError(t, os.WriteFile(fixture, []byte(content), 0o644))

	r, err := harness.New(mocks.NewPassthroughProcessor())
	require.NoError(t, err)

	n, err := r.EnqueueFixture(fixture)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.QueueSize())

	require.NoError(t, r.Run(1))

	out := r.FlowFilesFor("success")
	require.Len(t, out, 2)
	name, _ := out[0].Attribute(flowfile.CoreAttributeFilename)
	assert.Equal(t, "a.txt", name)
	assert.Equal(t, []byte("hello"), out[0].Content())
}

func TestEnqueueFixtureRejectsEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o644))

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("{not yaml: ["), 0o644))

	r, err := harness.New(mocks.NewMockProcessor())
	require.NoError(t, err)

	_, err = r.EnqueueFixture(empty)
	assert.Error(t, err)

	_, err = r.EnqueueFixture(malformed)
	assert.Error(t, err)

	_, err = r.EnqueueFixture(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestSessionCountersSurfaceThroughRunner(t *testing.T) {
	mock := mocks.NewMockProcessor()
	mock.TriggerFunc = func(_ context.Context, _ *processor.Context, sessions session.Provider) error {
		s := sessions.CreateSession()
		s.AdjustCounter("records.seen", 3)
		return s.Commit()
	}

	r, err := harness.New(mock)
	require.NoError(t, err)
	require.NoError(t, r.Run(2))

	value, ok := r.CounterValue("records.seen")
	require.True(t, ok)
	assert.EqualValues(t, 6, value)

	_, ok = r.CounterValue("records.dropped")
	assert.False(t, ok)
}

func TestProvenanceEventsAcrossRun(t *testing.T) {
	r, err := harness.New(mocks.NewPassthroughProcessor())
	require.NoError(t, err)

	r.EnqueueBytes([]byte("x"), nil)
	require.NoError(t, r.Run(1))

	events := r.ProvenanceEvents()
	require.NotEmpty(t, events)

	var sends int
	for _, e := range events {
		if e.Type == session.EventSend {
			sends++
		}
	}
	assert.Equal(t, 1, sends)
}

func TestRemovedCount(t *testing.T) {
	mock := mocks.NewMockProcessor()
	mock.TriggerFunc = func(_ context.Context, _ *processor.Context, sessions session.Provider) error {
		s := sessions.CreateSession()
		for ff := s.Get(); ff != nil; ff = s.Get() {
			if err := s.Remove(ff); err != nil {
				return err
			}
		}
		return s.Commit()
	}

	r, err := harness.New(mock)
	require.NoError(t, err)

	r.EnqueueBytes([]byte("a"), nil)
	r.EnqueueBytes([]byte("b"), nil)
	require.NoError(t, r.Run(1))

	assert.Equal(t, 2, r.RemovedCount())
	r.AssertQueueEmpty(t)
}

func TestClearTransferStateResetsAssertions(t *testing.T) {
	r, err := harness.New(mocks.NewPassthroughProcessor())
	require.NoError(t, err)

	r.EnqueueBytes([]byte("x"), nil)
	require.NoError(t, r.Run(1))
	r.AssertTransferCount(t, "success", 1)

	r.ClearTransferState()
	r.AssertTransferCount(t, "success", 0)
	assert.Empty(t, r.FlowFilesFor("success"))

	// A follow-up run accumulates from the clean slate.
	r.EnqueueBytes([]byte("y"), nil)
	require.NoError(t, r.Run(1))
	r.AssertTransferCount(t, "success", 1)
}

func TestContextPropertiesReachTrigger(t *testing.T) {
	var seen string
	mock := mocks.NewMockProcessor()
	mock.TriggerFunc = func(_ context.Context, pc *processor.Context, _ session.Provider) error {
		seen, _ = pc.Property("Batch Size")
		return nil
	}

	r, err := harness.New(mock)
	require.NoError(t, err)

	r.Context().SetProperty("Batch Size", "50")
	require.NoError(t, r.Run(1))

	assert.Equal(t, "50", seen)
}

func TestServiceFacade(t *testing.T) {
	r, err := harness.New(mocks.NewMockProcessor())
	require.NoError(t, err)

	svc := mocks.NewMockService(property.Descriptor{Name: "Directory", Required: true})
	require.NoError(t, r.AddService("store", svc, nil))

	r.AssertServiceNotValid(t, "store")

	result, err := r.SetServiceProperty("store", "Directory", "/srv/data")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	r.AssertServiceValid(t, "store")

	require.NoError(t, r.SetServiceAnnotationData("store", "notes"))

	require.NoError(t, r.EnableService("store"))
	enabled, err := r.IsServiceEnabled("store")
	require.NoError(t, err)
	assert.True(t, enabled)

	got, err := r.GetService("store")
	require.NoError(t, err)
	assert.Same(t, svc, got)

	require.NoError(t, r.DisableService("store"))
	require.NoError(t, r.RemoveService("store"))
	_, err = r.GetService("store")
	assert.Error(t, err)
}

func TestServicesReachTheTriggerThroughContext(t *testing.T) {
	var enabled bool
	mock := mocks.NewMockProcessor()
	mock.TriggerFunc = func(_ context.Context, pc *processor.Context, _ session.Provider) error {
		var err error
		enabled, err = pc.IsControllerServiceEnabled("cache")
		return err
	}

	r, err := harness.New(mock)
	require.NoError(t, err)

	require.NoError(t, r.AddService("cache", mocks.NewMockService(), nil))
	require.NoError(t, r.EnableService("cache"))
	require.NoError(t, r.Run(1))

	assert.True(t, enabled)
}

func TestMetricsRecordRunsAndTriggers(t *testing.T) {
	registry, err := metric.NewRegistry()
	require.NoError(t, err)

	r, err := harness.New(mocks.NewPassthroughProcessor(), harness.WithMetrics(registry))
	require.NoError(t, err)

	r.EnqueueBytes([]byte("x"), nil)
	require.NoError(t, r.Run(3))

	core := registry.CoreMetrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(core.RunsTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(core.TriggersTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(core.TriggerFailuresTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(core.QueueDepth), "queue drained")
}
