package classifier

import (
	"context"
	"errors"
	"image"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	Acne            = "Acne"
	Eczema          = "Eczema"
	FungalInfection = "Fungal Infection"
	Healthy         = "Healthy"
)

// Labels is the model's output order.
var Labels = []string{Acne, Eczema, FungalInfection, Healthy}

var tips = map[string]string{
	Acne:            "Use non-comedogenic products and wash your face twice a day.",
	Eczema:          "Use gentle moisturizers and avoid irritants.",
	FungalInfection: "Keep the area dry and use antifungal creams.",
	Healthy:         "Maintain a balanced diet and moisturize regularly.",
}

var (
	ErrNotInitialized = errors.New("model not initialized")
	ErrLabelMismatch  = errors.New("model output size does not match label count")
	ErrBusy           = errors.New("no model session available")
	ErrEmptyImage     = errors.New("image has no pixels")
)

type Layout string

const (
	NHWC Layout = "nhwc"
	NCHW Layout = "nchw"
)

type Result struct {
	Disease       string             `json:"disease"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Tips          string             `json:"tips"`
}

//go:generate mockgen -destination=../mocks/mock_classifier.go -package=mocks github.com/krau/dermalens/classifier Predictor

type Predictor interface {
	Predict(ctx context.Context, img image.Image) (*Result, error)
}

type Model struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (m *Model) destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}
