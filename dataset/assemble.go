package dataset

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ClassicalDataset is the flat form used by the classical classifiers.
// Features[i] belongs to Labels[i].
type ClassicalDataset struct {
	Features [][]float32 `json:"features"`
	Labels   []string    `json:"labels"`
	Classes  []string    `json:"classes"`
}

// TensorSample keeps the recording a tensor came from.
type TensorSample struct {
	Source string
	Tensor *tensors.Tensor
}

// NeuralDataset keeps plain and augmented tensors apart, keyed by label.
type NeuralDataset struct {
	Data      map[string][]TensorSample
	Augmented map[string][]TensorSample
	Classes   []string
}

type bucket struct {
	plain     []Sample
	augmented []Sample
}

// buckets groups the sets by label. Background frames of every label go to
// the background bucket, which comes first in the returned class order.
func buckets(group *DirectoryGroup, backgroundLabel string, sets []SampleSet) ([]string, map[string]*bucket) {
	classes := []string{backgroundLabel}
	out := map[string]*bucket{backgroundLabel: {}}
	for _, label := range group.Labels() {
		if label == backgroundLabel {
			continue
		}
		classes = append(classes, label)
		out[label] = &bucket{}
	}

	bg := out[backgroundLabel]
	for _, set := range sets {
		b, ok := out[set.Label]
		if !ok {
			b = &bucket{}
			out[set.Label] = b
			classes = append(classes, set.Label)
		}
		if set.Label != backgroundLabel {
			b.plain = append(b.plain, set.Raw...)
			b.augmented = append(b.augmented, set.Augmented...)
		}
		bg.plain = append(bg.plain, set.Background...)
		bg.augmented = append(bg.augmented, set.BackgroundAugmented...)
	}
	return classes, out
}

// AssembleClassical flattens every bucket, plain and augmented frames alike,
// into parallel feature and label slices.
func AssembleClassical(group *DirectoryGroup, backgroundLabel string, sets []SampleSet) ClassicalDataset {
	classes, grouped := buckets(group, backgroundLabel, sets)
	ds := ClassicalDataset{Classes: classes}
	for _, label := range classes {
		b := grouped[label]
		for _, s := range b.plain {
			ds.Features = append(ds.Features, s.Features)
			ds.Labels = append(ds.Labels, label)
		}
		for _, s := range b.augmented {
			ds.Features = append(ds.Features, s.Features)
			ds.Labels = append(ds.Labels, label)
		}
	}
	return ds
}

// AssembleNeural wraps every frame as a one dimensional tensor.
func AssembleNeural(group *DirectoryGroup, backgroundLabel string, sets []SampleSet) NeuralDataset {
	classes, grouped := buckets(group, backgroundLabel, sets)
	ds := NeuralDataset{
		Data:      make(map[string][]TensorSample, len(classes)),
		Augmented: make(map[string][]TensorSample, len(classes)),
		Classes:   classes,
	}
	for _, label := range classes {
		b := grouped[label]
		ds.Data[label] = toTensors(b.plain)
		ds.Augmented[label] = toTensors(b.augmented)
	}
	return ds
}

func toTensors(samples []Sample) []TensorSample {
	out := make([]TensorSample, 0, len(samples))
	for _, s := range samples {
		out = append(out, TensorSample{Source: s.Source, Tensor: tensors.FromAnyValue(s.Features)})
	}
	return out
}
