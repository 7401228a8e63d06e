package domain

// Quality is the coarse backend selector: high-quality trades latency
// for fidelity, fast the other way around. The mapping to a concrete
// model is the platform layer's concern.
type Quality string

// Supported quality settings.
const (
	QualityHigh Quality = "high"
	QualityFast Quality = "fast"
)

// InputImage is an optional conditioning image attached to a request.
type InputImage struct {
	Bytes    []byte
	MIMEType string
}

// SynthesisRequest is one generation submission to the remote service.
// Prompt construction happens in the feature façades; everything below
// is treated as opaque request parameters by the transport.
type SynthesisRequest struct {
	Quality        Quality
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Image          *InputImage
}
