package model

import (
	"encoding/json"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// docFromJSON keeps the fixtures in the same shape the loader sees on
// disk, morph target names in mesh extras included.
func docFromJSON(t *testing.T, src string) *gltf.Document {
	t.Helper()
	var doc gltf.Document
	require.NoError(t, json.Unmarshal([]byte(src), &doc))
	return &doc
}

const faceDoc = `{
	"meshes": [{
		"name": "Face",
		"primitives": [{
			"attributes": {"POSITION": 0},
			"targets": [{"POSITION": 1}, {"POSITION": 2}, {"POSITION": 3}]
		}],
		"extras": {"targetNames": ["A", "I", "smile"]}
	}],
	"nodes": [
		{"name": "Head", "rotation": [0, 0, 0, 1], "translation": [0, 1.6, 0]},
		{"name": "RightArm"},
		{"rotation": [0, 0, 0, 1]}
	]
}`

func TestGraphFromDocument_MorphNamesFromExtras(t *testing.T) {
	g, err := graphFromDocument(docFromJSON(t, faceDoc))
	require.NoError(t, err)

	require.Len(t, g.Meshes, 1)
	mesh := g.Meshes[0]
	assert.Equal(t, "Face", mesh.Name)
	assert.Equal(t, map[string]int{"A": 0, "I": 1, "smile": 2}, mesh.MorphNames)
	assert.Len(t, mesh.Influences, 3)
}

func TestGraphFromDocument_BonesFromNamedNodes(t *testing.T) {
	g, err := graphFromDocument(docFromJSON(t, faceDoc))
	require.NoError(t, err)

	// The anonymous node is skipped.
	require.Len(t, g.Bones, 2)
	assert.Equal(t, "Head", g.Bones[0].Name)
	assert.InDelta(t, 1.6, g.Bones[0].Position.Y(), 1e-5)

	// Identity quaternion decodes to zero Euler angles.
	assert.InDelta(t, 0.0, g.Bones[0].Rotation.X(), 1e-5)
	assert.InDelta(t, 0.0, g.Bones[0].Rotation.Y(), 1e-5)
	assert.InDelta(t, 0.0, g.Bones[0].Rotation.Z(), 1e-5)
}

func TestGraphFromDocument_NoMeshesFails(t *testing.T) {
	_, err := graphFromDocument(docFromJSON(t, `{"nodes": [{"name": "Head"}]}`))
	assert.Error(t, err)
}

func TestGraphFromDocument_MissingTargetNames(t *testing.T) {
	doc := docFromJSON(t, `{
		"meshes": [{
			"name": "Plain",
			"primitives": [{"targets": [{"POSITION": 1}, {"POSITION": 2}]}]
		}]
	}`)

	g, err := graphFromDocument(doc)
	require.NoError(t, err)

	mesh := g.Meshes[0]
	assert.Empty(t, mesh.MorphNames)
	assert.Len(t, mesh.Influences, 2)
}

func TestGraphFromDocument_ExtraNamesBeyondTargetCountIgnored(t *testing.T) {
	doc := docFromJSON(t, `{
		"meshes": [{
			"name": "Face",
			"primitives": [{"targets": [{"POSITION": 1}]}],
			"extras": {"targetNames": ["A", "I", "U"]}
		}]
	}`)

	g, err := graphFromDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 0}, g.Meshes[0].MorphNames)
}

func TestGraphFromDocument_TargetCountFromMeshWeights(t *testing.T) {
	doc := docFromJSON(t, `{
		"meshes": [{
			"name": "Face",
			"primitives": [{"attributes": {"POSITION": 0}}],
			"weights": [0, 0],
			"extras": {"targetNames": ["A", "I"]}
		}]
	}`)

	g, err := graphFromDocument(doc)
	require.NoError(t, err)

	assert.Len(t, g.Meshes[0].Influences, 2)
	assert.Equal(t, map[string]int{"A": 0, "I": 1}, g.Meshes[0].MorphNames)
}

func TestGraph_FindBone(t *testing.T) {
	g := &Graph{Bones: []*Bone{{Name: "Head"}, {Name: "Neck"}}}

	assert.Equal(t, g.Bones[1], g.FindBone("Neck"))
	assert.Nil(t, g.FindBone("neck")) // exact match only
	assert.Nil(t, g.FindBone("Tail"))

	var nilGraph *Graph
	assert.Nil(t, nilGraph.FindBone("Head"))
}

func TestQuatToEuler_QuarterTurnYaw(t *testing.T) {
	// 90 degrees around Y: q = (0, sin45, 0, cos45).
	v := quatToEuler([4]float64{0, 0.7071068, 0, 0.7071068})

	assert.InDelta(t, 1.5708, v.Y(), 1e-3)
	assert.InDelta(t, 0.0, v.X(), 1e-3)
	assert.InDelta(t, 0.0, v.Z(), 1e-3)
}
