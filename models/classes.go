// Package models - Class tables for detector outputs.
package models

import (
	"fmt"
	"strings"
)

// ClassNamer resolves a detector class index to a human-readable name.
//
// Detectors hand one ClassNamer out with every result object so that names are always
// resolved against the table the detection was produced with.
type ClassNamer interface {
	ClassName(id int) (string, bool)
}

// ModelFamily identifies the labelling convention of a class table.
type ModelFamily string

const (
	// ModelFamilyCOCO is the 80 COCO classes + "__background__" at index 0.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the 80 COCO classes indexed from zero, no background.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyVOC is the 20 Pascal VOC classes + background.
	ModelFamilyVOC ModelFamily = "voc"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily
	// Classes ordered by Index.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet builds a class set whose indices follow the order of names.
//
// Arguments:
//   - style: The model family of the table.
//   - names: Class names, index i is names[i].
//
// Returns:
//   - *OutputClassSet: The class set with its name index built.
func NewOutputClassSet(style ModelFamily, names []string) *OutputClassSet {
	set := &OutputClassSet{
		Style:   style,
		Classes: make([]OutputClass, len(names)),
	}
	for i, name := range names {
		set.Classes[i] = OutputClass{Index: i, Name: name}
	}
	set.buildNameIndexMap()
	return set
}

func (s *OutputClassSet) buildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[strings.ToLower(c.Name)] = c.Index
	}
}

// ClassName implements ClassNamer. Out of range indices report false.
func (s *OutputClassSet) ClassName(id int) (string, bool) {
	if s == nil || id < 0 || id >= len(s.Classes) {
		return "", false
	}
	return s.Classes[id].Name, true
}

// Index returns the class index for a name (case-insensitive, surrounding spaces ignored).
func (s *OutputClassSet) Index(name string) (int, bool) {
	if s == nil {
		return -1, false
	}
	idx, ok := s.nameToIdx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return -1, false
	}
	return idx, true
}

// Indices maps a list of class names to indices.
//
// Arguments:
//   - names: Class names to resolve.
//
// Returns:
//   - []int: The resolved indices, in the order of names.
//   - error: An error naming the first unknown class.
func (s *OutputClassSet) Indices(names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		idx, ok := s.Index(name)
		if !ok {
			return nil, fmt.Errorf("class %q not found in %q class set", name, s.Style)
		}
		out = append(out, idx)
	}
	return out, nil
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Classes)
}

func (s *OutputClassSet) names() []string {
	out := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		out[i] = c.Name
	}
	return out
}

// COCOClasses is the full 80 COCO classes plus "__background__" at index 0.
var COCOClasses = NewOutputClassSet(ModelFamilyCOCO, []string{
	"__background__", "person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe",
	"backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana",
	"apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake",
	"chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
})

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = NewOutputClassSet(ModelFamilyYOLO, COCOClasses.names()[1:])

// PascalVOCClasses is the 20 Pascal VOC classes + "__background__" at index 0.
var PascalVOCClasses = NewOutputClassSet(ModelFamilyVOC, []string{
	"__background__", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat",
	"chair", "cow", "diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep",
	"sofa", "train", "tvmonitor",
})

// ClassSetFor returns the class table registered for a model family.
func ClassSetFor(style ModelFamily) (*OutputClassSet, error) {
	switch style {
	case ModelFamilyYOLO:
		return YOLOClasses, nil
	case ModelFamilyCOCO:
		return COCOClasses, nil
	case ModelFamilyVOC:
		return PascalVOCClasses, nil
	default:
		return nil, fmt.Errorf("class set %q not registered", style)
	}
}
