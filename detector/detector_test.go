package detector

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// fakeInterpreter fills every output slot with background boxes and then
// applies the configured box writes.
type fakeInterpreter struct {
	cfg   *yolov3.Config
	boxes []fakeBox
	err   error
	delay time.Duration

	runs        int32
	closes      int32
	inFlight    int32
	maxInFlight int32
}

type fakeBox struct {
	scale, y, x, b int
	vals           []float32
}

func (f *fakeInterpreter) Run(input []float32, outputs map[int]*tensor.Dense) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}
	atomic.AddInt32(&f.runs, 1)
	time.Sleep(f.delay)

	if f.err != nil {
		return f.err
	}

	boxSize := f.cfg.BoxSize()
	for scale, out := range outputs {
		data := out.Data().([]float32)
		for i := range data {
			data[i] = 0
			if i%boxSize == 4 {
				data[i] = -20
			}
		}
		for _, box := range f.boxes {
			if box.scale != scale {
				continue
			}
			g := f.cfg.Grids[scale]
			offset := ((box.y*g+box.x)*yolov3.BoxesPerCell + box.b) * boxSize
			copy(data[offset:], box.vals)
		}
	}
	return nil
}

func (f *fakeInterpreter) Close() error {
	atomic.AddInt32(&f.closes, 1)
	return nil
}

func newTestDetector(t *testing.T, fake *fakeInterpreter, opts ...Option) *Detector {
	t.Helper()
	logger, _ := test.NewNullLogger()
	d, err := New(*fake.cfg, fake, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return d
}

func tinyConfig() *yolov3.Config {
	cfg := yolov3.TinyConfig([]string{"person", "bicycle", "car"})
	return &cfg
}

func pixels(cfg *yolov3.Config) []float32 {
	return make([]float32, inference.InputLen(cfg))
}

func TestDetectSingleCell(t *testing.T) {
	cfg := tinyConfig()
	fake := &fakeInterpreter{
		cfg: cfg,
		boxes: []fakeBox{{
			scale: 0, y: 4, x: 6, b: 1,
			vals: []float32{0, 0, 0, 0, float32(math.Log(9)), 0, 0, float32(math.Log(38))},
		}},
	}
	d := newTestDetector(t, fake)
	defer d.Close()

	detections, err := d.Detect(context.Background(), pixels(cfg))
	require.NoError(t, err)
	require.Len(t, detections, 1)

	det := detections[0]
	assert.Equal(t, 2, det.Class)
	assert.Equal(t, "car", det.Label)
	assert.InDelta(t, 0.855, det.Confidence, 1e-4)
	assert.InDelta(t, 208, det.Box.CenterX(), 1e-3)
	assert.InDelta(t, 144, det.Box.CenterY(), 1e-3)
}

func TestDetectEmpty(t *testing.T) {
	cfg := tinyConfig()
	d := newTestDetector(t, &fakeInterpreter{cfg: cfg})
	defer d.Close()

	detections, err := d.Detect(context.Background(), pixels(cfg))
	require.NoError(t, err)
	assert.NotNil(t, detections)
	assert.Empty(t, detections)
}

func TestDetectSuppressesAcrossScales(t *testing.T) {
	cfg := tinyConfig()

	// Scale 0 anchor 81x82 stretched to the 37x58 anchor of scale 1 slot 2,
	// both centered at (208, 208).
	tw := float32(math.Log(37.0 / 81.0))
	th := float32(math.Log(58.0 / 82.0))
	fake := &fakeInterpreter{
		cfg: cfg,
		boxes: []fakeBox{
			{scale: 0, y: 6, x: 6, b: 0, vals: []float32{0, 0, tw, th, 2, 5, 0, 0}},
			{scale: 1, y: 12, x: 12, b: 2, vals: []float32{10, 10, 0, 0, 4, 5, 0, 0}},
		},
	}
	d := newTestDetector(t, fake)
	defer d.Close()

	detections, err := d.Detect(context.Background(), pixels(cfg))
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 0, detections[0].Class)
	assert.Greater(t, detections[0].Confidence, float32(0.9))
}

func TestDetectInterpreterError(t *testing.T) {
	cfg := tinyConfig()
	d := newTestDetector(t, &fakeInterpreter{cfg: cfg, err: errors.New("device lost")})
	defer d.Close()

	detections, err := d.Detect(context.Background(), pixels(cfg))
	assert.ErrorIs(t, err, model.ErrInterpreter)
	assert.Contains(t, err.Error(), "device lost")
	assert.Nil(t, detections)
}

func TestDetectRejectsWrongInput(t *testing.T) {
	cfg := tinyConfig()
	fake := &fakeInterpreter{cfg: cfg}
	d := newTestDetector(t, fake)
	defer d.Close()

	_, err := d.Detect(context.Background(), make([]float32, 10))
	assert.ErrorIs(t, err, model.ErrInterpreter)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.runs))
}

func TestDetectCancelledContext(t *testing.T) {
	cfg := tinyConfig()
	fake := &fakeInterpreter{cfg: cfg}
	d := newTestDetector(t, fake)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx, pixels(cfg))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.runs))
}

func TestCloseOnce(t *testing.T) {
	cfg := tinyConfig()
	fake := &fakeInterpreter{cfg: cfg}
	d := newTestDetector(t, fake)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.closes))

	detections, err := d.Detect(context.Background(), pixels(cfg))
	assert.ErrorIs(t, err, model.ErrClosed)
	assert.ErrorIs(t, err, model.ErrInterpreter)
	assert.Nil(t, detections)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.runs))
}

func TestDetectSerializesInterpreter(t *testing.T) {
	cfg := tinyConfig()
	fake := &fakeInterpreter{cfg: cfg, delay: 2 * time.Millisecond}
	d := newTestDetector(t, fake)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Detect(context.Background(), pixels(cfg))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), atomic.LoadInt32(&fake.runs))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.maxInFlight))
}

func TestNewValidates(t *testing.T) {
	cfg := tinyConfig()

	_, err := New(*cfg, nil)
	assert.ErrorIs(t, err, model.ErrConfig)

	bad := cfg.Clone()
	bad.Masks = bad.Masks[:1]
	_, err = New(bad, &fakeInterpreter{cfg: cfg})
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestConfigIsCopied(t *testing.T) {
	cfg := tinyConfig()
	d := newTestDetector(t, &fakeInterpreter{cfg: cfg})
	defer d.Close()

	cfg.Labels[0] = "changed"
	got := d.Config()
	assert.Equal(t, "person", got.Labels[0])

	got.Labels[0] = "again"
	assert.Equal(t, "person", d.Config().Labels[0])
}

func TestDetectRecordsStages(t *testing.T) {
	cfg := tinyConfig()
	p := profiler.NewRuntimeProfiler(0)
	d := newTestDetector(t, &fakeInterpreter{cfg: cfg}, WithProfiler(p))
	defer d.Close()

	for i := 0; i < 3; i++ {
		_, err := d.Detect(context.Background(), pixels(cfg))
		require.NoError(t, err)
	}

	ops := p.Operations()
	require.Len(t, ops, 3)
	names := []string{ops[0].Name, ops[1].Name, ops[2].Name}
	assert.ElementsMatch(t, []string{StageInterpreter, StageDecode, StageNMS}, names)
	for _, op := range ops {
		assert.Equal(t, int64(3), op.Count)
	}
	assert.Same(t, p, d.Profiler())
}

func TestDetectLogsRunID(t *testing.T) {
	cfg := tinyConfig()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	d, err := New(*cfg, &fakeInterpreter{cfg: cfg}, WithLogger(logger))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Detect(context.Background(), pixels(cfg))
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.NotEmpty(t, entry.Data["run_id"])
	assert.Equal(t, model.ModelNameYOLOv3Tiny, entry.Data["model"])
	assert.Equal(t, 0, entry.Data["kept"])
}

func TestDetectImage(t *testing.T) {
	cfg := tinyConfig()
	d := newTestDetector(t, &fakeInterpreter{cfg: cfg})
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}

	detections, err := d.DetectImage(context.Background(), img)
	require.NoError(t, err)
	assert.Empty(t, detections)

	_, err = d.DetectImage(context.Background(), nil)
	assert.Error(t, err)
}
