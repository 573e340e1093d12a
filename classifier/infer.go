package classifier

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/krau/dermalens/config"
	ort "github.com/yalue/onnxruntime_go"
)

type Classifier struct {
	pool    chan *Model
	models  []*Model
	labels  []string
	opts    PreprocessOptions
	softmax bool
	timeout time.Duration
}

// New opens cfg.Workers sessions on the model file. The ONNX Runtime
// environment must already be initialized.
func New(cfg config.ModelConfig) (*Classifier, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", cfg.Path)
	}
	if dims := outputs[0].Dimensions; len(dims) > 0 {
		if n := dims[len(dims)-1]; n > 0 && int(n) != len(cfg.Labels) {
			return nil, fmt.Errorf("%w: model has %d classes, config has %d labels", ErrLabelMismatch, n, len(cfg.Labels))
		}
	}

	c := &Classifier{
		pool:   make(chan *Model, cfg.Workers),
		labels: cfg.Labels,
		opts: PreprocessOptions{
			Size:   cfg.ImageSize,
			Layout: Layout(cfg.Layout),
			Filter: Filter(cfg.Resample),
			Pad:    cfg.Pad,
		},
		softmax: cfg.Softmax,
		timeout: cfg.Timeout.D(),
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	size := int64(cfg.ImageSize)
	inputShape := ort.NewShape(1, size, size, 3)
	if c.opts.Layout == NCHW {
		inputShape = ort.NewShape(1, 3, size, size)
	}

	for range cfg.Workers {
		m, err := newModel(cfg.Path, inputs[0].Name, outputs[0].Name, inputShape, len(cfg.Labels), opts)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.models = append(c.models, m)
		c.pool <- m
	}
	slog.Info("Model loaded",
		slog.String("path", cfg.Path),
		slog.String("input", inputs[0].Name),
		slog.String("output", outputs[0].Name),
		slog.Int("workers", cfg.Workers))
	return c, nil
}

func newModel(path, inputName, outputName string, inputShape ort.Shape, classes int, opts *ort.SessionOptions) (*Model, error) {
	m := &Model{}
	var err error
	m.input, err = ort.NewTensor(inputShape, make([]float32, inputShape.FlattenedSize()))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	m.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		m.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	m.session, err = ort.NewAdvancedSession(
		path,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{m.input},
		[]ort.Value{m.output},
		opts,
	)
	if err != nil {
		m.destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}
	return m, nil
}

func (c *Classifier) Predict(ctx context.Context, img image.Image) (*Result, error) {
	if c == nil || c.pool == nil {
		return nil, ErrNotInitialized
	}
	inputData, err := Preprocess(img, c.opts)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var m *Model
	select {
	case m = <-c.pool:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrBusy, ctx.Err())
	}
	defer func() { c.pool <- m }()

	copy(m.input.GetData(), inputData)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run model: %w", err)
	}

	out := m.output.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)
	if c.softmax {
		probs = Softmax(probs)
	}
	return Summarize(probs, c.labels)
}

// Close destroys every session. Callers must not Predict afterwards.
func (c *Classifier) Close() {
	for _, m := range c.models {
		m.destroy()
	}
	c.models = nil
}
