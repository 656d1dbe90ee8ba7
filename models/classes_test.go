package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassSets(t *testing.T) {
	assert.Equal(t, 81, COCOClasses.Len())
	assert.Equal(t, 80, YOLOClasses.Len())
	assert.Equal(t, 21, PascalVOCClasses.Len())

	name, ok := YOLOClasses.ClassName(0)
	require.True(t, ok)
	assert.Equal(t, "person", name)

	name, ok = COCOClasses.ClassName(1)
	require.True(t, ok)
	assert.Equal(t, "person", name)

	name, ok = YOLOClasses.ClassName(79)
	require.True(t, ok)
	assert.Equal(t, "toothbrush", name)
}

func TestClassName_OutOfRange(t *testing.T) {
	for _, id := range []int{-1, 80, 1000} {
		_, ok := YOLOClasses.ClassName(id)
		assert.False(t, ok, "id %d", id)
	}

	var nilSet *OutputClassSet
	_, ok := nilSet.ClassName(0)
	assert.False(t, ok)
}

func TestIndices(t *testing.T) {
	idx, err := YOLOClasses.Indices([]string{"person", " Car ", "truck"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 7}, idx)

	_, err = YOLOClasses.Indices([]string{"person", "unicorn"})
	assert.ErrorContains(t, err, "unicorn")
}

func TestClassSetFor(t *testing.T) {
	set, err := ClassSetFor(ModelFamilyYOLO)
	require.NoError(t, err)
	assert.Same(t, YOLOClasses, set)

	_, err = ClassSetFor("imagenet")
	assert.Error(t, err)
}
