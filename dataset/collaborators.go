package dataset

import "github.com/coding-garden-1/parrot-sans-pyaudio/models"

// FrameCounter reports how many frames of msPerFrame a data directory holds.
type FrameCounter interface {
	CountFrames(label, directory string, msPerFrame int) (int, error)
	CountSilenceFrames(directory string, msPerFrame int) (int, error)
}

// FeatureExtractor encodes the frames of one recording. Calls that differ
// only in Variant.Augment must return the same number of frames in the same
// order.
type FeatureExtractor interface {
	Extract(segmentPath, audioPath, inputType string, v models.Variant) ([][]float32, error)
}
