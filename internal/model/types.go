package model

// Preprocessing conventions understood by the inference pipeline.
const (
	PreprocessInceptionResNetV2 = "inception_resnet_v2"
)

// Default model geometry: a single 300x300 RGB image in NHWC order scored by
// one sigmoid unit.
const (
	DefaultImageSize = 300
	DefaultChannels  = 3
)

// Default class labels in training index order.
const (
	ClassFaulty = "Faulty"
	ClassNormal = "Normal"
)

// Metadata is the JSON sidecar shipped next to an artifact.
type Metadata struct {
	InputShape    []int64            `json:"input_shape"`
	OutputShape   []int64            `json:"output_shape"`
	Classes       []string           `json:"classes"`
	ImageSize     int                `json:"image_size"`
	InputName     string             `json:"input_name,omitempty"`
	OutputName    string             `json:"output_name,omitempty"`
	Preprocessing string             `json:"preprocessing"`
	CustomObjects []CustomObjectSpec `json:"custom_objects,omitempty"`

	// confirmed is set when the class order came from a sidecar rather than
	// from defaults.
	confirmed bool
}

// CustomObjectSpec names a custom layer or loss the artifact was serialized
// with, together with its serialized config.
type CustomObjectSpec struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// DefaultMetadata describes the artifact produced by the training pipeline
// when no sidecar is available. Class order follows alphabetical directory
// ordering at training time.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:    []int64{1, DefaultImageSize, DefaultImageSize, DefaultChannels},
		OutputShape:   []int64{1, 1},
		Classes:       []string{ClassFaulty, ClassNormal},
		ImageSize:     DefaultImageSize,
		Preprocessing: PreprocessInceptionResNetV2,
	}
}

// ClassesConfirmed reports whether the class order was read from a sidecar.
func (m Metadata) ClassesConfirmed() bool {
	return m.confirmed
}

// ScoreClass is the label the sigmoid output is the probability of
// (training index 1).
func (m Metadata) ScoreClass() string {
	if len(m.Classes) < 2 {
		return ClassNormal
	}
	return m.Classes[1]
}

// InputSize is the number of float32 values in one input tensor.
func (m Metadata) InputSize() int {
	n := 1
	for _, d := range m.InputShape {
		n *= int(d)
	}
	return n
}
